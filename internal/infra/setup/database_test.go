package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name    string
		opts    DBOptions
		want    string
		wantErr bool
	}{
		{
			name: "mysql",
			opts: DBOptions{Driver: "mysql", User: "chat", Password: "pw", Host: "db", Port: "3306", Name: "ephemeral_chat"},
			want: "chat:pw@tcp(db:3306)/ephemeral_chat?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name: "postgres",
			opts: DBOptions{Driver: "postgres", User: "chat", Password: "pw", Host: "db", Port: "5432", Name: "ephemeral_chat"},
			want: "host=db port=5432 user=chat password=pw dbname=ephemeral_chat sslmode=disable TimeZone=UTC",
		},
		{
			name: "explicit dsn wins",
			opts: DBOptions{Driver: "mysql", DSN: "root@tcp(localhost)/x"},
			want: "root@tcp(localhost)/x",
		},
		{name: "missing user", opts: DBOptions{Driver: "mysql"}, wantErr: true},
		{name: "unknown driver", opts: DBOptions{Driver: "oracle", User: "u"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildDSN(tt.opts)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
