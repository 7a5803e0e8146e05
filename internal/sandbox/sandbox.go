// Package sandbox prepares generated iteration HTML for the play page.
package sandbox

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const marker = "data-console-capture"

// captureScript forwards console calls to the embedding window so the page
// can collect them as iteration logs.
const captureScript = `<script ` + marker + `>
(function () {
  if (window.__consoleCapture) return;
  window.__consoleCapture = true;
  ["log", "warn", "error", "info", "debug"].forEach(function (type) {
    var original = console[type];
    console[type] = function () {
      var args = Array.prototype.slice.call(arguments).map(function (arg) {
        if (typeof arg === "string") return arg;
        if (arg instanceof Error) return arg.message;
        try { return JSON.stringify(arg); } catch (e) { return String(arg); }
      });
      window.parent.postMessage({ type: type, args: args }, "*");
      original.apply(console, arguments);
    };
  });
})();
</script>`

// Inject adds the console capture script at the start of <head>. Documents
// that already carry it are returned unchanged.
func Inject(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse iteration html: %w", err)
	}

	if doc.Find("script[" + marker + "]").Length() > 0 {
		return content, nil
	}

	doc.Find("head").First().PrependHtml(captureScript)

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("render iteration html: %w", err)
	}

	return out, nil
}

// FormatLog renders one captured console call the way it is sent back with
// an iteration request.
func FormatLog(level string, args ...string) string {
	return "[" + strings.ToUpper(level) + "] " + strings.Join(args, " ")
}
