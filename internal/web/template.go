package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/eqep-encoder/internal/status"
)

// formatUptime renders d as "3d 4h 5m 6s", leaving out leading zero units.
func formatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	parts := []struct {
		n    int64
		unit string
	}{
		{secs / 86400, "d"},
		{secs / 3600 % 24, "h"},
		{secs / 60 % 60, "m"},
	}
	out := ""
	for _, p := range parts {
		if p.n > 0 || out != "" {
			out += fmt.Sprintf("%d%s ", p.n, p.unit)
		}
	}
	return out + fmt.Sprintf("%ds", secs%60)
}

func orUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

// stateClass maps an ON/OFF/other value to its CSS class.
func stateClass(s string) string {
	switch s {
	case "ON":
		return "on"
	case "OFF":
		return "off"
	}
	return "unknown"
}

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime":     formatUptime,
	"orUnknown":  orUnknown,
	"stateClass": stateClass,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Config.Channel}} Encoder</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
h2 { font-size: 1.1em; margin-top: 1.5em; }
table { border-collapse: collapse; width: 100%; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
#position { font-size: 2em; }
.on, .ok { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.bad { color: red; }
form { display: inline-block; margin: 0 4px 4px 0; }
#live { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; background: orange; }
#live.ok { background: green; }
#live.bad { background: red; }
</style>
</head>
<body>
{{- $index := orUnknown (printf "%s" .Index)}}
<h1>{{.Config.Channel}} Encoder{{if .Config.WSBroker}}<span id="live" title="connecting"></span>{{end}}</h1>

<table>
<tr><th>Position</th><td id="position">{{.Hardware.Position}}</td></tr>
<tr><th>Last delta</th><td id="delta">-</td></tr>
<tr><th>Index</th><td id="index" class="{{stateClass $index}}">{{$index}}</td></tr>
<tr><th>Enabled</th><td class="{{if .Hardware.Enabled}}on{{else}}off{{end}}">{{if .Hardware.Enabled}}yes{{else}}no{{end}}</td></tr>
<tr><th>Mode</th><td>{{orUnknown .Hardware.Mode}}</td></tr>
<tr><th>Frequency</th><td>{{printf "%.3f" .Hardware.Frequency}} Hz</td></tr>
<tr><th>Ready</th><td>{{if .Baselined}}yes{{else}}no{{end}}</td></tr>
{{- if .Hardware.Error}}
<tr><th>Error</th><td class="bad">{{.Hardware.Error}}</td></tr>
{{- end}}
</table>
{{if .Controls}}
<h2>Control</h2>
<form method="post" action="/zero"><button>Zero</button></form>
{{- if .Hardware.Enabled}}
<form method="post" action="/disable"><button>Disable</button></form>
{{- else}}
<form method="post" action="/enable"><button>Enable</button></form>
{{- end}}
<form method="post" action="/mode"><select name="value"><option>absolute</option><option>relative</option></select><button>Set mode</button></form>
<form method="post" action="/frequency"><input name="hz" size="8" value="{{printf "%g" .Hardware.Frequency}}"> Hz <button>Set</button></form>
{{end}}
<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}ok{{else}}bad{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.Topic}}</td></tr>
{{- with .Network}}
<tr><th>Network</th><td>{{.Status}} ({{.Type}}{{if .SSID}}, {{.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.IP}}</td></tr>
{{- end}}
</table>

<h2>Events since start</h2>
<table>
<tr><th>Position</th><td>{{.Counts.Position}}</td></tr>
<tr><th>Index on / off</th><td>{{.Counts.IndexOn}} / {{.Counts.IndexOff}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Device</th><td>{{.Config.DevicePath}}</td></tr>
<tr><th>Poll / debounce</th><td>{{.Config.PollMs}}ms / {{.Config.DebounceMs}}ms</td></tr>
<tr><th>Deadband</th><td>{{.Config.Deadband}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{- if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var live = document.getElementById("live");
  var pos = document.getElementById("position");
  var delta = document.getElementById("delta");
  var index = document.getElementById("index");

  function mark(cls, title) { live.className = cls; live.title = title; }

  var client = mqtt.connect("{{.Config.WSBroker}}", { reconnectPeriod: 5000 });
  client.on("connect", function() { mark("ok", "live"); client.subscribe("{{.Config.Topic}}"); });
  client.on("reconnect", function() { mark("", "reconnecting"); });
  client.on("offline", function() { mark("bad", "offline"); });
  client.on("error", function() { mark("bad", "error"); });
  client.on("message", function(_, payload) {
    var e;
    try { e = JSON.parse(payload.toString()).encoder; } catch (err) { return; }
    if (!e) { return; }
    pos.textContent = e.position;
    if (e.event === "POSITION") { delta.textContent = e.delta || 0; }
    index.textContent = e.index;
    index.className = e.index === "ON" ? "on" : e.index === "OFF" ? "off" : "unknown";
  });
})();
</script>
{{- end}}
</body>
</html>
`

// page is the template data: the snapshot plus values the template cannot
// compute itself.
type page struct {
	status.Snapshot
	Uptime   time.Duration
	Controls bool
}

func renderHTML(w io.Writer, snap status.Snapshot, controls bool) error {
	return indexTmpl.Execute(w, page{Snapshot: snap, Uptime: snap.Uptime(), Controls: controls})
}
