package logger

import "strings"

// RedactEmail masks a lead address for log output, keeping just enough of
// the local part to correlate adjacent log lines:
// "dana.w@example.com" -> "da***@example.com". Local parts of two
// characters or fewer are masked entirely, and anything that is not an
// address at all comes back as "***@***".
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "***@***"
	}
	local, dom := email[:at], email[at+1:]
	if len(local) <= 2 {
		return "***@" + dom
	}
	return local[:2] + "***@" + dom
}
