// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package queue

import (
	"testing"
)

func TestResumeMsgIDDeterministic(t *testing.T) {
	a := resumeMsgID("ws-1", "phoneburner")
	b := resumeMsgID("ws-1", "phoneburner")
	if a != b {
		t.Errorf("same identity produced different ids: %q vs %q", a, b)
	}

	if resumeMsgID("ws-1", "phoneburner") == resumeMsgID("ws-2", "phoneburner") {
		t.Error("different workspaces produced the same id")
	}
	if resumeMsgID("ws-1", "phoneburner") == resumeMsgID("ws-1", "airtable") {
		t.Error("different platforms produced the same id")
	}
}

func TestSplitQueueURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{
			name:     "host and port",
			url:      "nats://127.0.0.1:4222",
			wantHost: "127.0.0.1",
			wantPort: 4222,
		},
		{
			name:     "custom port",
			url:      "nats://0.0.0.0:14222",
			wantHost: "0.0.0.0",
			wantPort: 14222,
		},
		{
			name:     "default port when omitted",
			url:      "nats://queue.internal",
			wantHost: "queue.internal",
			wantPort: 4222,
		},
		{
			name:    "non-numeric port",
			url:     "nats://127.0.0.1:abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := splitQueueURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if host != tt.wantHost {
				t.Errorf("host = %q, want %q", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("port = %d, want %d", port, tt.wantPort)
			}
		})
	}
}
