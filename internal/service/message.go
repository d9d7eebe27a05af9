package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/paragishere/Cyvance-chat/internal/domain"
	"github.com/paragishere/Cyvance-chat/internal/repository"
)

// 表单字段错误文案
const (
	msgRequired     = "This field is required."
	msgEmptyFile    = "The submitted file is empty."
	msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."
	msgImageTooBig  = "Image too large."
	msgImageType    = "Unsupported image type."
)

// TextInput 文本消息表单
type TextInput struct {
	Nickname string `form:"nickname" validate:"max=24"`
	Content  string `form:"content" validate:"required,max=5000"`
}

// CodeInput 代码消息表单
type CodeInput struct {
	Nickname string `form:"nickname" validate:"max=24"`
	Content  string `form:"content" validate:"required,max=20000"`
	Language string `form:"language" validate:"max=24"`
}

// ImageInput 图片消息表单。Data 为 nil 表示未上传文件。
type ImageInput struct {
	Nickname    string `form:"nickname" validate:"max=24"`
	Filename    string
	ContentType string // 客户端声明的媒体类型
	Size        int64
	Data        io.Reader `validate:"-"`
}

// MessageService 负责校验并追加消息，同时刷新房间活跃时间。
type MessageService struct {
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	attachments repository.AttachmentStore
	locker      repository.RoomLocker
	validate    *validator.Validate
	settings    Settings
	now         Clock
}

// NewMessageService 创建 MessageService 实例。
func NewMessageService(
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	attachments repository.AttachmentStore,
	locker repository.RoomLocker,
	settings Settings,
) *MessageService {
	if roomRepo == nil || messageRepo == nil || attachments == nil || locker == nil {
		panic("dependencies cannot be nil for MessageService")
	}
	v := validator.New()
	// 错误按表单字段名返回
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &MessageService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		attachments: attachments,
		locker:      locker,
		validate:    v,
		settings:    settings,
		now:         systemClock,
	}
}

// WithClock 替换时间源
func (s *MessageService) WithClock(clock Clock) *MessageService {
	s.now = clock
	return s
}

// SendText 追加文本消息
func (s *MessageService) SendText(ctx context.Context, code string, in TextInput) (*domain.Message, error) {
	if err := s.ensureRoom(ctx, code); err != nil {
		return nil, err
	}
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Content = strings.TrimSpace(in.Content)
	if verr := s.validateStruct(in); verr != nil {
		return nil, verr
	}

	msg := &domain.Message{
		Type:     domain.MessageText,
		Content:  in.Content,
		Nickname: normalizeNickname(in.Nickname),
	}
	if err := s.append(ctx, code, msg, nil); err != nil {
		return nil, err
	}
	return msg, nil
}

// SendCode 追加代码消息，语言标签以 "[lang]\n" 前缀写入内容
func (s *MessageService) SendCode(ctx context.Context, code string, in CodeInput) (*domain.Message, error) {
	if err := s.ensureRoom(ctx, code); err != nil {
		return nil, err
	}
	in.Nickname = strings.TrimSpace(in.Nickname)
	in.Content = strings.TrimSpace(in.Content)
	in.Language = strings.TrimSpace(in.Language)
	if verr := s.validateStruct(in); verr != nil {
		return nil, verr
	}

	msg := &domain.Message{
		Type:     domain.MessageCode,
		Content:  domain.WithLanguageTag(in.Language, in.Content),
		Nickname: normalizeNickname(in.Nickname),
	}
	if err := s.append(ctx, code, msg, nil); err != nil {
		return nil, err
	}
	return msg, nil
}

// SendImage 校验并保存图片附件，然后追加图片消息
func (s *MessageService) SendImage(ctx context.Context, code string, in ImageInput) (*domain.Message, error) {
	if err := s.ensureRoom(ctx, code); err != nil {
		return nil, err
	}
	in.Nickname = strings.TrimSpace(in.Nickname)

	verr := newValidationError()
	if err := s.validateStruct(in); err != nil {
		verr = err
	}
	data := s.checkImage(&in, verr)
	if verr.HasErrors() {
		return nil, verr
	}

	msg := &domain.Message{
		Type:     domain.MessageImage,
		Nickname: normalizeNickname(in.Nickname),
	}
	if err := s.append(ctx, code, msg, &attachment{ext: imageExtension(in), data: data}); err != nil {
		return nil, err
	}
	return msg, nil
}

type attachment struct {
	ext  string
	data io.Reader
}

// checkImage 依次校验图片：必填、非空、确为图片、大小、媒体类型。
// 通过时返回可完整读取文件内容的 reader。
func (s *MessageService) checkImage(in *ImageInput, verr *ValidationError) io.Reader {
	if in.Data == nil {
		verr.Add("image", msgRequired)
		return nil
	}
	if in.Size == 0 {
		verr.Add("image", msgEmptyFile)
		return nil
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(in.Data, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		verr.Add("image", msgInvalidImage)
		return nil
	}
	head = head[:n]
	if n == 0 {
		verr.Add("image", msgEmptyFile)
		return nil
	}
	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		verr.Add("image", msgInvalidImage)
		return nil
	}
	if in.Size > s.settings.MaxImageBytes {
		verr.Add("image", msgImageTooBig)
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(in.ContentType)
	if err != nil || !s.settings.imageTypeAllowed(mediaType) {
		verr.Add("image", msgImageType)
		return nil
	}
	in.ContentType = mediaType
	return io.MultiReader(bytes.NewReader(head), in.Data)
}

// ensureRoom 在校验表单前确认房间存在
func (s *MessageService) ensureRoom(ctx context.Context, code string) error {
	if _, err := s.roomRepo.FindByCode(ctx, code); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_code", code).Error("MessageService: Repository error looking up room")
		return ErrInternalServer
	}
	return nil
}

// append 在房间锁内保存附件、写入消息并刷新房间。
// 任何一步失败都不会留下消息记录或孤立附件。
func (s *MessageService) append(ctx context.Context, code string, msg *domain.Message, att *attachment) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_code": code, "message_type": msg.Type})

	lockCtx, cancel := context.WithTimeout(ctx, s.settings.LockTimeout)
	defer cancel()
	unlock, err := s.locker.Lock(lockCtx, code)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to acquire room lock for append")
		return ErrRoomBusy
	}
	defer unlock()

	if att != nil {
		path, err := s.attachments.Save(ctx, att.ext, att.data)
		if err != nil {
			logCtx.WithError(err).Error("Failed to store image attachment")
			return ErrInternalServer
		}
		msg.AttachmentPath = path
	}

	msg.CreatedAt = nowUTC(s.now)
	if err := s.messageRepo.AppendAndTouch(ctx, code, msg); err != nil {
		if msg.HasAttachment() {
			if delErr := s.attachments.Delete(ctx, msg.AttachmentPath); delErr != nil {
				logCtx.WithError(delErr).WithField("attachment", msg.AttachmentPath).Warn("Failed to remove attachment after failed append")
			}
			msg.AttachmentPath = ""
		}
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Warn("Room vanished before message could be appended")
			return ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to append message")
		return ErrInternalServer
	}

	logCtx.WithField("message_id", msg.ID).Info("Message appended")
	return nil
}

// validateStruct 执行 validator 校验并转换为字段错误
func (s *MessageService) validateStruct(in interface{}) *ValidationError {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr := newValidationError()
		verr.Add("__all__", err.Error())
		return verr
	}
	verr := newValidationError()
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldErrorMessage(fe))
	}
	return verr
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "max":
		value, _ := fe.Value().(string)
		return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), utf8.RuneCountInString(value))
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
	}
}

func normalizeNickname(nickname string) string {
	if nickname == "" {
		return domain.DefaultNickname
	}
	return nickname
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func imageExtension(in ImageInput) string {
	if ext, ok := imageExtensions[in.ContentType]; ok {
		return ext
	}
	return strings.ToLower(filepath.Ext(in.Filename))
}
