package redisx

const (
	// Session token -> identity hash: session:{token}
	KeySession = "session:%s"

	// Cached report payload: report:{name}:{scope}
	KeyReport = "report:%s:%s"
)
