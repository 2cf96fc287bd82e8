package logfields

import (
	"errors"
	"testing"
)

func TestFieldKeysStable(t *testing.T) {
	// Key drift would break log ingestion schemas, so pin them.
	cases := []struct {
		name string
		key  string
		want string
	}{
		{"CheckID", CheckID("c1").Key, KeyCheckID},
		{"Signature", Signature("abc").Key, KeySignature},
		{"SchemaHash", SchemaHash("def").Key, KeySchemaHash},
		{"ServiceID", ServiceID("svc").Key, KeyServiceID},
		{"Operations", Operations(3).Key, KeyOperations},
		{"Added", Added(1).Key, KeyAdded},
		{"Removed", Removed(2).Key, KeyRemoved},
		{"Backend", Backend("memory").Key, KeyBackend},
		{"Subject", Subject("regsync.registry.updates").Key, KeySubject},
		{"URL", URL("http://example.test").Key, KeyURL},
		{"DurationMS", DurationMS(1.5).Key, KeyDurationMS},
		{"Method", Method("GET").Key, KeyMethod},
		{"Path", Path("/status").Key, KeyPath},
		{"Status", Status(200).Key, KeyStatus},
		{"UserAgent", UserAgent("x").Key, KeyUserAgent},
		{"RemoteAddr", RemoteAddr("127.0.0.1").Key, KeyRemoteAddr},
		{"Error", Error(errors.New("boom")).Key, KeyError},
	}
	for _, tc := range cases {
		if tc.key != tc.want {
			t.Errorf("%s: key = %q, want %q", tc.name, tc.key, tc.want)
		}
	}
}

func TestErrorAttrValues(t *testing.T) {
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Errorf("Error value = %q, want %q", got, "boom")
	}
	if got := Error(nil).Value.String(); got != "" {
		t.Errorf("Error(nil) value = %q, want empty", got)
	}
}
