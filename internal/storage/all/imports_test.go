package all

import (
	"testing"

	"graph2sql/internal/storage"
)

func TestAllKindsRegistered(t *testing.T) {
	got := map[string]bool{}
	for _, k := range storage.ListKinds() {
		got[k] = true
	}
	for _, want := range []string{"postgres", "sqlite", "mssql", "mysql", "snowflake"} {
		if !got[want] {
			t.Errorf("kind %q not registered; have %v", want, storage.ListKinds())
		}
	}
}
