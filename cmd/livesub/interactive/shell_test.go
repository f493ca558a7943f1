package interactive

import (
	"bytes"
	"strings"
	"testing"

	"github.com/livesub/livesub-go/pkg/scenario"
)

func newTestShell() (*Shell, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewWithWriter(scenario.NewSession(scenario.ClientConfig{}, scenario.Options{}), &buf), &buf
}

func run(t *testing.T, sh *Shell, buf *bytes.Buffer, line string) string {
	t.Helper()
	buf.Reset()
	if !sh.Exec(line) {
		t.Fatalf("Exec(%q) asked to quit", line)
	}
	return buf.String()
}

func TestShellSession(t *testing.T) {
	sh, buf := newTestShell()

	out := run(t, sh, buf, `doc item subscription OnItem($id: ID!) { item(id: $id) { id name } }`)
	if !strings.Contains(out, "Registered item (OnItem)") {
		t.Errorf("doc output = %q", out)
	}

	out = run(t, sh, buf, "mount a")
	if out != "#1 mount a\n" {
		t.Errorf("mount output = %q", out)
	}

	out = run(t, sh, buf, "render a item {id: 1}")
	want := "#2 render a OnItem {\"id\":1}\n   a: loading=true data=null subscribes=1 unsubscribes=0\n"
	if out != want {
		t.Errorf("render output = %q, want %q", out, want)
	}

	out = run(t, sh, buf, "publish OnItem {id: 1, name: a} where {id: 1}")
	want = "#3 publish OnItem {\"id\":1,\"name\":\"a\"} where {\"id\":1} delivered=1\n" +
		"   a: loading=false data={\"id\":1,\"name\":\"a\"} subscribes=1 unsubscribes=0\n"
	if out != want {
		t.Errorf("publish output = %q, want %q", out, want)
	}

	out = run(t, sh, buf, "fail OnItem socket closed")
	if !strings.Contains(out, `error="subscription OnItem: socket closed"`) {
		t.Errorf("fail output = %q", out)
	}

	out = run(t, sh, buf, "status")
	if !strings.Contains(out, "Client: requests=1 active=1 unsubscribes=0") {
		t.Errorf("status output = %q", out)
	}

	out = run(t, sh, buf, "unmount a")
	if out != "#5 unmount a\n" {
		t.Errorf("unmount output = %q", out)
	}
}

func TestShellRenderFlags(t *testing.T) {
	sh, buf := newTestShell()
	run(t, sh, buf, "doc price subscription OnPrice { price }")
	run(t, sh, buf, "mount p detached")

	out := run(t, sh, buf, "render p price")
	if !strings.Contains(out, "unrendered render_error=") {
		t.Errorf("render without client = %q", out)
	}

	out = run(t, sh, buf, "render p price explicit keep")
	if !strings.Contains(out, "explicit keep_data") || !strings.Contains(out, "loading=true") {
		t.Errorf("explicit render = %q", out)
	}
}

func TestShellErrors(t *testing.T) {
	sh, buf := newTestShell()

	tests := []struct {
		line string
		want string
	}{
		{"bogus", "Unknown command: bogus"},
		{"doc q", "Usage: doc"},
		{"doc q query Q { a }", "Error:"},
		{"render a", "Usage: render"},
		{"render a item", "Error: invalid scenario"},
		{"unmount a", "Error: invalid scenario"},
		{"publish OnItem", "Usage: publish"},
		{"fail OnItem", "Usage: fail"},
		{"mount", "Usage: mount"},
	}
	for _, tt := range tests {
		if out := run(t, sh, buf, tt.line); !strings.Contains(out, tt.want) {
			t.Errorf("Exec(%q) = %q, want it to contain %q", tt.line, out, tt.want)
		}
	}
}

func TestShellDocsAndHelp(t *testing.T) {
	sh, buf := newTestShell()

	if out := run(t, sh, buf, "docs"); !strings.Contains(out, "No documents registered") {
		t.Errorf("docs = %q", out)
	}
	run(t, sh, buf, "doc b subscription B { b }")
	run(t, sh, buf, "doc a subscription A { a }")
	if out := run(t, sh, buf, "docs"); out != "  a\n  b\n" {
		t.Errorf("docs = %q", out)
	}
	if out := run(t, sh, buf, "help"); !strings.Contains(out, "publish <op> <data> [where]") {
		t.Errorf("help = %q", out)
	}
}

func TestShellQuit(t *testing.T) {
	sh, _ := newTestShell()
	for _, cmd := range []string{"quit", "exit", "q"} {
		if sh.Exec(cmd) {
			t.Errorf("Exec(%q) = true, want false", cmd)
		}
	}
	if !sh.Exec("   ") {
		t.Error("Exec(blank) = false, want true")
	}
}
