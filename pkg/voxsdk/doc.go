/*
Package voxsdk provides a client for the voxgate voice enrollment and
verification service.

# Overview

A Client wraps the two account endpoints and the health probes:

	client := voxsdk.NewClient("http://localhost:8080")

	// Enroll a new account with a secret and a voice sample.
	_, err := client.Enroll(ctx, "alice", "hunter2", wavBytes)

	// Verify a later attempt.
	decision, err := client.Verify(ctx, "alice", "hunter2", wavBytes)
	if err == nil && decision.Accepted {
		// logged in
	}

Audio may be WAV (integer PCM) or WebM with an Opus track, the format browsers
record by default. The client base64-encodes the bytes.

# Errors

Non-2xx responses are returned as *APIError carrying the stable error code
from the response body. The predefined errors compare by code, so callers can
branch with errors.Is:

	if errors.Is(err, voxsdk.ErrInvalidCredentials) {
		// unknown user or wrong secret; the service does not say which
	}

A rejected voice is not an error: Verify returns a LoginResponse with
Accepted set to false and Reason explaining why.
*/
package voxsdk
