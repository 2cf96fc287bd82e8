package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCheckID    = "check_id"
	KeySignature  = "signature"
	KeySchemaHash = "schema_hash"
	KeyServiceID  = "service_id"
	KeyOperations = "operations"
	KeyAdded      = "added"
	KeyRemoved    = "removed"
	KeyBackend    = "backend"
	KeySubject    = "subject"
	KeyURL        = "url"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"

	// HTTP fields used by the admin server middleware.
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func CheckID(id string) slog.Attr      { return slog.String(KeyCheckID, id) }
func Signature(sig string) slog.Attr   { return slog.String(KeySignature, sig) }
func SchemaHash(h string) slog.Attr    { return slog.String(KeySchemaHash, h) }
func ServiceID(id string) slog.Attr    { return slog.String(KeyServiceID, id) }
func Operations(n int) slog.Attr       { return slog.Int(KeyOperations, n) }
func Added(n int) slog.Attr            { return slog.Int(KeyAdded, n) }
func Removed(n int) slog.Attr          { return slog.Int(KeyRemoved, n) }
func Backend(b string) slog.Attr       { return slog.String(KeyBackend, b) }
func Subject(s string) slog.Attr       { return slog.String(KeySubject, s) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
