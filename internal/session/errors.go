// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "fmt"

// StartError reports a selection whose session could not be constructed or
// started. No session is left active when it is returned.
type StartError struct {
	SessionID string
	Folder    string
	Stage     string
	Err       error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("session %s (%s): %s: %v", e.SessionID, e.Folder, e.Stage, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }
