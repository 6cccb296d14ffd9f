package hybrid

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/scholarfetch/internal/engine/metadata"
	urlutil "github.com/law-makers/scholarfetch/internal/utils/url"
)

// DefaultScriptBudget bounds the total time spent evaluating one page
const DefaultScriptBudget = 5 * time.Second

// Solution is what a challenge page's scripts asked the browser to do
type Solution struct {
	// Cookies written through document.cookie
	Cookies []*http.Cookie

	// Navigate is an absolute URL assigned to location, or found in a
	// meta refresh
	Navigate string

	// Submit is a form the scripts submitted, with its final field values
	Submit *metadata.FormAction
}

// Empty reports whether the scripts did nothing a client could act on
func (s *Solution) Empty() bool {
	return s == nil || (len(s.Cookies) == 0 && s.Navigate == "" && s.Submit == nil)
}

// prelude builds a minimal window/document/location around the Go hooks
// below. Timers fire immediately; event listeners for load run after the
// last inline script.
const prelude = `
(function (g) {
  var href = __pageURL;
  var loc = {};
  Object.defineProperty(loc, 'href', {
    get: function () { return href; },
    set: function (v) { __navigate(String(v)); }
  });
  loc.assign = function (v) { __navigate(String(v)); };
  loc.replace = loc.assign;
  loc.reload = function () { __navigate(href); };
  loc.toString = function () { return href; };
  loc.protocol = __urlPart('protocol');
  loc.host = __urlPart('host');
  loc.hostname = __urlPart('hostname');
  loc.pathname = __urlPart('pathname');
  loc.search = __urlPart('search');
  loc.hash = '';

  var els = {};
  function element(id) {
    if (els[id]) { return els[id]; }
    var el = {
      id: id,
      name: __inputName(id),
      value: __inputValue(id),
      style: {},
      innerHTML: '',
      innerText: '',
      setAttribute: function (k, v) { this[k] = v; },
      getAttribute: function (k) { return this[k]; },
      appendChild: function () {},
      addEventListener: function () {},
      submit: function () { __submit(id, values()); },
      click: function () {}
    };
    els[id] = el;
    return el;
  }
  function values() {
    var out = {};
    for (var k in els) {
      if (els[k].name) { out[els[k].name] = String(els[k].value); }
    }
    return out;
  }

  var doc = {
    readyState: 'complete',
    referrer: '',
    title: __title,
    body: { appendChild: function () {}, style: {} },
    getElementById: function (id) { return __exists(id) ? element(id) : null; },
    querySelector: function () { return null; },
    querySelectorAll: function () { return []; },
    getElementsByTagName: function () { return []; },
    createElement: function () { return element('__anon' + Math.random()); },
    addEventListener: function (ev, fn) { g.addEventListener(ev, fn); }
  };
  Object.defineProperty(doc, 'cookie', {
    get: function () { return __getCookie(); },
    set: function (v) { __setCookie(String(v)); }
  });
  Object.defineProperty(doc, 'location', {
    get: function () { return loc; },
    set: function (v) { __navigate(String(v)); }
  });

  var onload = [];
  g.addEventListener = function (ev, fn) {
    if ((ev === 'load' || ev === 'DOMContentLoaded') && typeof fn === 'function') { onload.push(fn); }
  };
  g.__runOnload = function () {
    for (var i = 0; i < onload.length; i++) { try { onload[i](); } catch (e) {} }
  };

  g.window = g;
  g.self = g;
  g.top = g;
  g.parent = g;
  g.document = doc;
  Object.defineProperty(g, 'location', {
    get: function () { return loc; },
    set: function (v) { __navigate(String(v)); }
  });
  g.navigator = {
    userAgent: __userAgent,
    language: 'en-US',
    languages: ['en-US', 'en'],
    platform: 'Win32',
    cookieEnabled: true,
    webdriver: false
  };
  g.screen = { width: 1920, height: 1080, availWidth: 1920, availHeight: 1040, colorDepth: 24 };
  g.setTimeout = function (fn) {
    if (typeof fn === 'function') { fn(); } else if (typeof fn === 'string') { (0, eval)(fn); }
    return 0;
  };
  g.setInterval = function () { return 0; };
  g.clearTimeout = function () {};
  g.clearInterval = function () {};
  g.atob = __atob;
  g.btoa = __btoa;
  g.console = { log: function () {}, warn: function () {}, error: function () {}, debug: function () {} };
})(this);
`

// sandbox evaluates one page's inline scripts
type sandbox struct {
	vm       *goja.Runtime
	pageURL  string
	cookies  map[string]*http.Cookie
	order    []string
	navigate string
	submit   *metadata.FormAction
	forms    map[string]metadata.FormAction
	inputs   map[string][2]string // id -> {name, value}
}

// Solve runs the inline scripts of a challenge page and reports what they
// did. Script errors are expected (the DOM is mostly fake) and are only
// logged. The returned error is non-nil only when evaluation was cut short by
// ctx or the budget.
func Solve(ctx context.Context, pageURL, markup, userAgent string, budget time.Duration) (*Solution, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse challenge page: %w", err)
	}
	if budget <= 0 {
		budget = DefaultScriptBudget
	}

	sb := newSandbox(pageURL, doc)
	if err := sb.install(userAgent, metadata.TitleOf(doc)); err != nil {
		return nil, err
	}

	timer := time.AfterFunc(budget, func() { sb.vm.Interrupt("script budget exceeded") })
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() { sb.vm.Interrupt(ctx.Err()) })
	defer stop()

	scripts := metadata.InlineScripts(doc)
	for i, src := range scripts {
		if _, err := sb.vm.RunString(src); err != nil {
			if interrupted(err) {
				return sb.solution(doc), fmt.Errorf("script evaluation interrupted: %w", err)
			}
			log.Debug().
				Str("url", pageURL).
				Int("script", i).
				Err(err).
				Msg("Challenge script failed")
		}
	}
	if _, err := sb.vm.RunString("__runOnload()"); err != nil && interrupted(err) {
		return sb.solution(doc), fmt.Errorf("script evaluation interrupted: %w", err)
	}

	return sb.solution(doc), nil
}

func interrupted(err error) bool {
	var ie *goja.InterruptedError
	return errors.As(err, &ie)
}

func newSandbox(pageURL string, doc *goquery.Document) *sandbox {
	sb := &sandbox{
		vm:      goja.New(),
		pageURL: pageURL,
		cookies: make(map[string]*http.Cookie),
		forms:   make(map[string]metadata.FormAction),
		inputs:  make(map[string][2]string),
	}

	forms := metadata.Forms(doc)
	doc.Find("form").Each(func(i int, sel *goquery.Selection) {
		if id, ok := sel.Attr("id"); ok && i < len(forms) {
			sb.forms[id] = forms[i]
		}
	})
	doc.Find("input[id]").Each(func(i int, sel *goquery.Selection) {
		id, _ := sel.Attr("id")
		sb.inputs[id] = [2]string{sel.AttrOr("name", ""), sel.AttrOr("value", "")}
	})
	return sb
}

func (sb *sandbox) install(userAgent, title string) error {
	hooks := map[string]interface{}{
		"__pageURL":   sb.pageURL,
		"__userAgent": userAgent,
		"__title":     title,
		"__navigate":  sb.setNavigate,
		"__setCookie": sb.setCookie,
		"__getCookie": sb.cookieHeader,
		"__urlPart":   sb.urlPart,
		"__exists":    sb.exists,
		"__inputName": func(id string) string { return sb.inputs[id][0] },
		"__inputValue": func(id string) string {
			return sb.inputs[id][1]
		},
		"__submit": sb.submitForm,
		"__atob": func(s string) (string, error) {
			b, err := base64.StdEncoding.DecodeString(s)
			return string(b), err
		},
		"__btoa": func(s string) string {
			return base64.StdEncoding.EncodeToString([]byte(s))
		},
	}
	for name, v := range hooks {
		if err := sb.vm.Set(name, v); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}
	if _, err := sb.vm.RunString(prelude); err != nil {
		return fmt.Errorf("install browser shims: %w", err)
	}
	return nil
}

func (sb *sandbox) setNavigate(target string) {
	if sb.navigate == "" {
		sb.navigate = urlutil.ResolveURL(sb.pageURL, target)
	}
}

// setCookie parses one document.cookie assignment
func (sb *sandbox) setCookie(raw string) {
	parts := strings.Split(raw, ";")
	name, value, ok := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !ok || name == "" {
		return
	}
	c := &http.Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value), Path: "/"}
	for _, attr := range parts[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(attr), "=")
		switch strings.ToLower(k) {
		case "path":
			c.Path = v
		case "domain":
			c.Domain = v
		case "max-age":
			if v == "0" {
				c.MaxAge = -1
			}
		}
	}
	if _, seen := sb.cookies[c.Name]; !seen {
		sb.order = append(sb.order, c.Name)
	}
	sb.cookies[c.Name] = c
}

func (sb *sandbox) cookieHeader() string {
	pairs := make([]string, 0, len(sb.order))
	for _, name := range sb.order {
		if c := sb.cookies[name]; c.MaxAge >= 0 {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
	}
	return strings.Join(pairs, "; ")
}

func (sb *sandbox) urlPart(part string) string {
	u, err := url.Parse(sb.pageURL)
	if err != nil {
		return ""
	}
	switch part {
	case "protocol":
		return u.Scheme + ":"
	case "host":
		return u.Host
	case "hostname":
		return u.Hostname()
	case "pathname":
		return u.EscapedPath()
	case "search":
		if u.RawQuery == "" {
			return ""
		}
		return "?" + u.RawQuery
	}
	return ""
}

func (sb *sandbox) exists(id string) bool {
	if _, ok := sb.forms[id]; ok {
		return true
	}
	_, ok := sb.inputs[id]
	return ok
}

func (sb *sandbox) submitForm(id string, values map[string]interface{}) {
	form, ok := sb.forms[id]
	if !ok || sb.submit != nil {
		return
	}
	fields := make(map[string]string, len(form.Fields))
	for k, v := range form.Fields {
		fields[k] = v
	}
	for k, v := range values {
		fields[k] = fmt.Sprint(v)
	}
	form.Fields = fields
	form.Action = urlutil.ResolveURL(sb.pageURL, form.Action)
	sb.submit = &form
}

func (sb *sandbox) solution(doc *goquery.Document) *Solution {
	sol := &Solution{Navigate: sb.navigate, Submit: sb.submit}
	for _, name := range sb.order {
		if c := sb.cookies[name]; c.MaxAge >= 0 {
			sol.Cookies = append(sol.Cookies, c)
		}
	}
	if sol.Navigate == "" && sol.Submit == nil {
		if target := MetaRefresh(doc); target != "" {
			sol.Navigate = urlutil.ResolveURL(sb.pageURL, target)
		}
	}
	return sol
}
