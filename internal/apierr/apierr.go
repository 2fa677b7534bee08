// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// =============================================================================
// KINDS AND OPERATIONS
// =============================================================================

// Kind categorizes a failure for handling.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindServer
	KindUnsupported
	KindNetwork
	KindEmptyConversation
	KindPartialSave
	KindInvalidRequest
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindUnsupported:
		return "unsupported"
	case KindNetwork:
		return "network"
	case KindEmptyConversation:
		return "empty_conversation"
	case KindPartialSave:
		return "partial_save"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unknown"
	}
}

// Op identifies the client operation that failed.
type Op int

const (
	OpUnknown Op = iota
	OpChat
	OpImage
	OpProbe
	OpCatalog
	OpSession
)

// String returns the operation name used in logs.
func (o Op) String() string {
	switch o {
	case OpChat:
		return "chat"
	case OpImage:
		return "image"
	case OpProbe:
		return "probe"
	case OpCatalog:
		return "catalog"
	case OpSession:
		return "session"
	default:
		return "unknown"
	}
}

// =============================================================================
// ERROR TYPE
// =============================================================================

// Error is a classified client failure.
type Error struct {
	Kind   Kind
	Op     Op
	Status int    // HTTP status, 0 when no response was received
	Detail string // server-supplied detail, if any
	Cause  error

	// Set only for KindPartialSave.
	SessionID string
	Saved     int
	Total     int
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op.String())
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Kind == KindPartialSave {
		fmt.Fprintf(&b, " (%d of %d saved, session %s)", e.Saved, e.Total, e.SessionID)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports kind equality so the sentinels below match any error of the
// same kind regardless of operation or detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors for errors.Is checks.
var (
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrServer            = &Error{Kind: KindServer}
	ErrUnsupported       = &Error{Kind: KindUnsupported}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrEmptyConversation = &Error{Kind: KindEmptyConversation}
	ErrPartialSave       = &Error{Kind: KindPartialSave}
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest}
)

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// Invalid returns a KindInvalidRequest error for a failed local precondition.
func Invalid(op Op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// EmptyConversation returns the error for saving a conversation with no messages.
func EmptyConversation() *Error {
	return &Error{Kind: KindEmptyConversation, Op: OpSession}
}

// PartialSave returns the error for a session whose append sequence stopped
// after saved of total messages.
func PartialSave(sessionID string, saved, total int, cause error) *Error {
	var status int
	var ae *Error
	if errors.As(cause, &ae) {
		status = ae.Status
	}
	return &Error{
		Kind:      KindPartialSave,
		Op:        OpSession,
		Status:    status,
		Cause:     cause,
		SessionID: sessionID,
		Saved:     saved,
		Total:     total,
	}
}

// detailBody is the error envelope the gateway returns on failure.
type detailBody struct {
	Detail json.RawMessage `json:"detail"`
}

// ParseDetail extracts the "detail" field from an error body. A string detail
// is returned verbatim; structured detail is returned as compact JSON.
func ParseDetail(body []byte) string {
	var env detailBody
	if err := json.Unmarshal(body, &env); err != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(env.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if string(env.Detail) == "null" {
		return ""
	}
	return string(env.Detail)
}

// FromStatus classifies a non-2xx response.
func FromStatus(op Op, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status, Detail: ParseDetail(body)}
	switch {
	case status == http.StatusRequestTimeout:
		e.Kind = KindTimeout
	case status == http.StatusNotImplemented && op == OpImage:
		e.Kind = KindUnsupported
	default:
		e.Kind = KindServer
	}
	return e
}

// FromTransport classifies a failure where no response was received.
func FromTransport(op Op, err error) *Error {
	if ae, ok := err.(*Error); ok {
		return ae
	}
	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Op: op, Cause: err}
	}
	return &Error{Kind: KindNetwork, Op: op, Cause: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// =============================================================================
// QUERIES
// =============================================================================

// KindOf returns the kind of err, or KindUnknown when err is not classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// ForcesChatMode reports whether err requires the active mode to become chat.
func ForcesChatMode(err error) bool {
	return KindOf(err) == KindUnsupported
}

// Reachable reports whether a probe outcome counts as the gateway being up.
func Reachable(err error) bool {
	return err == nil
}

// Classify returns err unchanged when it is already classified and folds any
// other error in as a transport failure of op.
func Classify(op Op, err error) error {
	if err == nil || KindOf(err) != KindUnknown {
		return err
	}
	return FromTransport(op, err)
}
