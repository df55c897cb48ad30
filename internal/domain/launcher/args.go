package launcher

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
)

const appFlag = "--app="

var chromeNames = map[string]bool{
	"chrome":               true,
	"chromium":             true,
	"chromium-browser":     true,
	"google-chrome":        true,
	"google-chrome-stable": true,
}

// SplitArgs splits a command-line argument string. Double and single quotes
// group words; backslashes are literal so Windows paths survive.
func SplitArgs(s string) []string {
	var (
		args  []string
		cur   strings.Builder
		quote rune
		inArg bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case unicode.IsSpace(r):
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args
}

// IsHTTPURL reports whether s parses as an absolute http or https URL
func IsHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsChromeExecutable reports whether path names a Chrome or Chromium binary
func IsChromeExecutable(path string) bool {
	return chromeNames[process.NormalizeName(path)]
}

// AppURL returns the value of the --app= argument, or "".
func AppURL(args []string) string {
	for _, a := range args {
		if strings.HasPrefix(strings.ToLower(a), appFlag) {
			return strings.Trim(a[len(appFlag):], `"'`)
		}
	}
	return ""
}

// HasAppArgument reports whether the argument string carries --app=
func HasAppArgument(arguments string) bool {
	return AppURL(SplitArgs(arguments)) != ""
}

// ExpectedTitle derives the window title a Chrome app window is expected
// to contain from its site: the host without "www." for web sites and the
// file name without extension for file:/// pages.
func ExpectedTitle(site string) string {
	u, err := url.Parse(site)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "http", "https":
		return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	case "file":
		base := path.Base(u.Path)
		if base == "." || base == "/" {
			return ""
		}
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return ""
}

// AppKey is a stable key for a Chrome app site, used to tell apart several
// app windows hosted by one browser process.
func AppKey(site string) string {
	u, err := url.Parse(site)
	if err != nil || u.Scheme == "" {
		return strings.ToLower(strings.TrimSpace(site))
	}
	key := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + strings.TrimRight(u.Path, "/")
	return key
}
