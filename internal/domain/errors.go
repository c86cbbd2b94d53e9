package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDeferredHandler is returned by sandboxes whose plugin does not
	// implement handleDeferred.
	ErrNoDeferredHandler = errors.New("plugin has no deferred action handler")
	// ErrDetachedItem is returned when an item has no owning plugin.
	ErrDetachedItem = errors.New("list item has no owning plugin")
	// ErrEmptyList is returned when an action needs a selected item.
	ErrEmptyList = errors.New("result list is empty")
	// ErrItemGone is returned when an activation names an item that is no
	// longer in the result list.
	ErrItemGone = errors.New("list item is no longer shown")
)

// LoadError means a plugin module or manifest could not be loaded. The
// plugin is dropped and the host continues with the others.
type LoadError struct {
	Plugin string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load plugin %s: %v", e.Plugin, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IOErrorKind classifies capability failures.
type IOErrorKind string

const (
	IONotFound         IOErrorKind = "not-found"
	IOPermissionDenied IOErrorKind = "permission-denied"
	IOInvalidPath      IOErrorKind = "invalid-path"
	IOOther            IOErrorKind = "other"
)

// IOError is a capability call failure. It is handed to the plugin as a
// typed value it may handle or propagate.
type IOError struct {
	Kind    IOErrorKind
	Message string
}

func (e *IOError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ProtocolError means a plugin returned malformed data or failed a query or
// deferred call. The query contributes nothing.
type ProtocolError struct {
	Plugin string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("plugin %s: %v", e.Plugin, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ActivationError means an activate, alt-activate, hotkey or complete call
// failed. The selection is left unchanged.
type ActivationError struct {
	Plugin string
	Err    error
}

func (e *ActivationError) Error() string {
	if e.Plugin == "" {
		return fmt.Sprintf("activate: %v", e.Err)
	}
	return fmt.Sprintf("activate in plugin %s: %v", e.Plugin, e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }
