package gcp

import (
	"os"
	"strings"

	"google.golang.org/api/option"
)

// ClientOptionsFromEnv reads service-account credentials from
// GOOGLE_APPLICATION_CREDENTIALS_JSON (inline) or GOOGLE_APPLICATION_CREDENTIALS
// (inline JSON or a file path). Nil means application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}

// truncateWords keeps at most n words of s.
func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
