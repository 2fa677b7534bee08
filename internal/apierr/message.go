// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// User-facing notification texts.
const (
	MsgChatTimeout      = "Request timeout - the AI model took too long to respond. Please try again."
	MsgImageTimeout     = "Request timeout - image generation took too long. Please try again."
	MsgClientTimeout    = "Request timeout. Please try again."
	MsgUnsupported      = "Image generation is not supported by the server. Switched to Chat mode."
	MsgServerError      = "Server error. Please try again."
	MsgChatFailed       = "Failed to send message. Please try again."
	MsgImageFailed      = "Failed to generate image. Please try again."
	MsgNetwork          = "Cannot reach the AI Nexus server. Check that it is running."
	MsgEmpty            = "No messages to save"
	MsgSaveFailed       = "Failed to save chat"
	MsgCatalogFailed    = "Failed to load models."
	MsgGenericFailure   = "Something went wrong. Please try again."
	msgPartialSaveTmpl  = "Failed to save chat: %d of %d messages saved"
	msgInvalidRequestFx = "Invalid request: %s"
)

// UserMessage renders the single notification shown for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return MsgGenericFailure
	}

	switch e.Kind {
	case KindTimeout:
		if e.Status == http.StatusRequestTimeout {
			switch e.Op {
			case OpChat:
				return MsgChatTimeout
			case OpImage:
				return MsgImageTimeout
			}
		}
		return MsgClientTimeout
	case KindUnsupported:
		return MsgUnsupported
	case KindServer:
		if e.Status == http.StatusInternalServerError {
			if e.Detail != "" {
				return e.Detail
			}
			return MsgServerError
		}
		return failedFor(e.Op)
	case KindNetwork:
		return MsgNetwork
	case KindEmptyConversation:
		return MsgEmpty
	case KindPartialSave:
		return fmt.Sprintf(msgPartialSaveTmpl, e.Saved, e.Total)
	case KindInvalidRequest:
		return fmt.Sprintf(msgInvalidRequestFx, e.Detail)
	default:
		return failedFor(e.Op)
	}
}

func failedFor(op Op) string {
	switch op {
	case OpChat:
		return MsgChatFailed
	case OpImage:
		return MsgImageFailed
	case OpSession:
		return MsgSaveFailed
	case OpCatalog:
		return MsgCatalogFailed
	default:
		return MsgGenericFailure
	}
}
