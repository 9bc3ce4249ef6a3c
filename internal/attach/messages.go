package attach

import (
	"fmt"

	"attachr/internal/api"
)

// NotificationKind classifies a user-visible error.
type NotificationKind string

const (
	KindType       NotificationKind = "type"
	KindSize       NotificationKind = "size"
	KindBatchCount NotificationKind = "batch-count"
	KindTotalCount NotificationKind = "total-count"
	KindRead       NotificationKind = "read"
	KindTransport  NotificationKind = "transport"
	KindRemote     NotificationKind = "remote"
)

// Notification is one message for the notification sink.
type Notification struct {
	Type    string
	Kind    NotificationKind
	Message string
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

const (
	MessageUploadFailed = "Upload failed."
	MessageLinkFailed   = "Failed to load the file from the link."
	MessageInvalidLink  = "The link is not a valid http or https URL."
)

var apiErrorMessages = map[string]string{
	"file_too_large":            "File size exceeds the upload limit.",
	"unsupported_file_type":     "File type is not supported.",
	"file_extension_blocked":    "File extension is blocked for security reasons.",
	"too_many_files":            "Only one file can be uploaded at a time.",
	"no_file_uploaded":          "Please choose a file to upload.",
	"filename_not_exists_error": "The file has no name.",
	"forbidden":                 "You do not have permission to upload files.",
}

// ErrorMessage resolves a transport error to a user-facing message. Errors
// without a recognized API code yield fallback.
func ErrorMessage(err error, fallback string) string {
	if msg, ok := apiErrorMessages[api.CodeOf(err)]; ok {
		return msg
	}
	return fallback
}

func typeMessage(allowed []string) string {
	return fmt.Sprintf("File type not supported. Allowed: %s.", AcceptFilter(allowed))
}

func sizeMessage(limitMB int) string {
	return fmt.Sprintf("File exceeds the %dMB size limit.", limitMB)
}

func totalCountMessage(limit int) string {
	return fmt.Sprintf("You can attach at most %d files.", limit)
}

func readMessage(name string) string {
	return fmt.Sprintf("Could not read %s.", name)
}
