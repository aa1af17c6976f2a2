package perception

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// genai pulls in opencensus, whose init starts a view worker.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
		// Idle keep-alive connections of http.DefaultTransport outlive httptest servers briefly.
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}
