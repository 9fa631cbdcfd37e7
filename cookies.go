package ofetch

import (
	"net/url"
)

// Cookie returns the URL-decoded value of the named cookie visible for
// rawurl. Without a cookie source (the non-browser execution context) no
// cookie is ever reported.
func (c *Client) Cookie(rawurl, name string) (string, bool) {
	cookies := c.Cookies(rawurl)
	value, ok := cookies[name]
	if !ok {
		return "", false
	}
	if decoded, err := url.QueryUnescape(value); err == nil {
		return decoded, true
	}
	return value, true
}

// Cookies returns the cookies visible for rawurl as a name to raw value
// mapping. Later duplicates win, matching jar precedence.
func (c *Client) Cookies(rawurl string) map[string]string {
	out := map[string]string{}
	if c.cookies == nil {
		return out
	}
	u, err := url.Parse(rawurl)
	if err != nil {
		return out
	}
	for _, cookie := range c.cookies.Cookies(u) {
		out[cookie.Name] = cookie.Value
	}
	return out
}
