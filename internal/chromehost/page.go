package chromehost

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"

	"pkt.systems/ayen/schema"
)

const contextMenuBinding = "__ayenContextMenu"

// contextMenuScript forwards contextmenu events to the binding. The default
// menu is suppressed; the shell renders its own.
const contextMenuScript = `(() => {
  if (typeof window === "undefined" || window.__ayenMenuInstalled) return;
  window.__ayenMenuInstalled = true;
  window.addEventListener("contextmenu", (ev) => {
    const link = ev.target && ev.target.closest ? ev.target.closest("a[href]") : null;
    const payload = {
      x: Math.round(ev.clientX),
      y: Math.round(ev.clientY),
      selectionText: String(window.getSelection ? window.getSelection() : ""),
      linkURL: link ? link.href : ""
    };
    ev.preventDefault();
    try { window.__ayenContextMenu(JSON.stringify(payload)); } catch (_) {}
  }, true);
})();`

func frameURL(frame *cdp.Frame) string {
	if frame == nil {
		return ""
	}
	return frame.URL + frame.URLFragment
}

func parseContextMenu(payload string) (*schema.ContextMenuRequest, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, errors.New("empty payload")
	}
	var req schema.ContextMenuRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// faviconCandidates lists icon URLs declared in head, resolved against
// pageURL, in document order. Pages served over http(s) without an icon link
// fall back to /favicon.ico.
func faviconCandidates(pageURL, head string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(href string) {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil || href == "" {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, abs)
	}
	if strings.TrimSpace(head) != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(head))
		if err == nil {
			doc.Find("link[rel][href]").Each(func(_ int, sel *goquery.Selection) {
				rel, _ := sel.Attr("rel")
				if !isIconRel(rel) {
					return
				}
				href, _ := sel.Attr("href")
				add(href)
			})
		}
	}
	if len(out) == 0 && (base.Scheme == "http" || base.Scheme == "https") && base.Host != "" {
		add("/favicon.ico")
	}
	return out
}

func isIconRel(rel string) bool {
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		switch token {
		case "icon", "apple-touch-icon":
			return true
		}
	}
	return false
}
