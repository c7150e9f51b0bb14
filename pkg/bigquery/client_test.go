package bigquery

import (
	"testing"

	"github.com/attesthealth/attest-backend/pkg/config"
)

func TestConfiguredTablesTrimsAndSkipsEmpty(t *testing.T) {
	if got := configuredTables(config.BigQueryConfig{AuditEventsTable: " audit_events "}); len(got) != 1 || got[0] != "audit_events" {
		t.Fatalf("expected [audit_events], got %v", got)
	}
	if got := configuredTables(config.BigQueryConfig{AuditEventsTable: "  "}); len(got) != 0 {
		t.Fatalf("expected no tables for blank config, got %v", got)
	}
}

func TestClientOptions(t *testing.T) {
	cases := []struct {
		name string
		gcp  config.GCPConfig
		want int
	}{
		{
			name: "json credentials win over file",
			gcp: config.GCPConfig{
				CredentialsJSON:        `{"dummy": "value"}`,
				ApplicationCredentials: "/tmp/creds",
			},
			want: 1,
		},
		{
			name: "credentials file alone",
			gcp:  config.GCPConfig{ApplicationCredentials: "/tmp/creds"},
			want: 1,
		},
		{
			name: "ambient credentials",
			gcp:  config.GCPConfig{},
			want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := clientOptions(tc.gcp); len(got) != tc.want {
				t.Fatalf("expected %d options, got %d", tc.want, len(got))
			}
		})
	}
}
