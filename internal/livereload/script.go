package livereload

import (
	"bytes"
	"fmt"
)

// WebSocketPath and EventsPath are the transport endpoints the client script
// and the dev server agree on.
const (
	WebSocketPath = "/__ws"
	EventsPath    = "/__events"
)

const scriptTemplate = `<script>
(function () {
  var url = %s;
  function connect() {
    var ws = new WebSocket(url);
    ws.onmessage = function () { location.reload(); };
    ws.onclose = function () { setTimeout(connect, 5000); };
  }
  connect();
})();
</script>`

// Script returns the client snippet that reloads the page on every message.
// An empty host means the page's own host.
func Script(host string) string {
	url := `"ws://" + location.host + "` + WebSocketPath + `"`
	if host != "" {
		url = fmt.Sprintf("%q", "ws://"+host+WebSocketPath)
	}
	return fmt.Sprintf(scriptTemplate, url)
}

var closingBody = []byte("</body>")

// Inject places the script before the last </body>, or appends it when the
// document has none.
func Inject(page []byte, host string) []byte {
	script := []byte(Script(host))
	idx := bytes.LastIndex(page, closingBody)
	if idx < 0 {
		out := make([]byte, 0, len(page)+len(script))
		out = append(out, page...)
		return append(out, script...)
	}
	out := make([]byte, 0, len(page)+len(script))
	out = append(out, page[:idx]...)
	out = append(out, script...)
	return append(out, page[idx:]...)
}
