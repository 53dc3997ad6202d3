package security

import (
	"fmt"
	"regexp"
	"strings"
)

// denyPatterns uses regex for robust matching that resists obfuscation.
var denyPatterns = []*regexp.Regexp{
	// Destructive file operations
	regexp.MustCompile(`(?i)\brm\s+-[rRf]{1,3}\s+[/~*]`),
	regexp.MustCompile(`(?i)\brm\s+-[rRf]{1,3}\b`),
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`(?i)\bdd\s+if=`),
	regexp.MustCompile(`:\(\)\s*\{.*\|.*&\s*\}\s*;`), // fork bomb

	// System control
	regexp.MustCompile(`(?i)\b(shutdown|reboot|poweroff|halt)\b`),
	regexp.MustCompile(`(?i)\bchmod\s+-R\s+777\s+/`),
	regexp.MustCompile(`(?i)\bchown\s+-R\b`),

	// Device access
	regexp.MustCompile(`>\s*/dev/sd[a-z]`),

	// Remote code execution via pipe
	regexp.MustCompile(`(?i)\b(curl|wget)\b.*\|\s*(sh|bash)\b`),

	// Shell meta-execution
	regexp.MustCompile(`(?i)\beval\b`),
	regexp.MustCompile(`(?i)\bexec\b`),

	// Privilege escalation + destructive combos
	regexp.MustCompile(`(?i)\bsudo\s+(rm|dd|mkfs)\b`),

	// Process control
	regexp.MustCompile(`(?i)\b(killall|kill\s+-9)\b`),

	// User management
	regexp.MustCompile(`(?i)\b(passwd|useradd|userdel|usermod)\b`),

	// Firewall
	regexp.MustCompile(`(?i)\biptables\s+-F\b`),
	regexp.MustCompile(`(?i)\bufw\s+disable\b`),

	// Network listeners
	regexp.MustCompile(`(?i)\b(nc|ncat)\s+-l\b`),

	// Inline script execution
	regexp.MustCompile(`(?i)\b(python3?|perl|ruby)\s+-[ce]\b`),

	// Anti-forensics
	regexp.MustCompile(`(?i)\bbase64\s+-d\b`),
	regexp.MustCompile(`(?i)\bhistory\s+-c\b`),
	regexp.MustCompile(`(?i)\bshred\b`),

	// Sensitive files
	regexp.MustCompile(`/etc/(shadow|passwd)\b`),

	// Cron/service management
	regexp.MustCompile(`(?i)\bcrontab\s+-r\b`),
	regexp.MustCompile(`(?i)\bsystemctl\s+(stop|disable)\b`),
	regexp.MustCompile(`(?i)\blaunchctl\s+unload\b`),

	// Bulk deletion
	regexp.MustCompile(`(?i)\bxargs\s+rm\b`),
	regexp.MustCompile(`(?i)\bfind\s+/\s+.*-delete\b`),
	regexp.MustCompile(`(?i)\btruncate\s+-s\s+0\b`),

	// Entropy/DoS
	regexp.MustCompile(`(?i)\bcat\s+/dev/urandom\b`),
	regexp.MustCompile(`(?i)\bwhile\s+true\b`),

	// Background persistence
	regexp.MustCompile(`(?i)\bnohup\b`),

	// Remote transfer destructive
	regexp.MustCompile(`(?i)\bscp\b`),
	regexp.MustCompile(`(?i)\brsync\s+--delete\b`),

	// VCS/package destructive
	regexp.MustCompile(`(?i)\bgit\s+push\s+--force\b`),
	regexp.MustCompile(`(?i)\bnpm\s+publish\b`),

	// Container destructive
	regexp.MustCompile(`(?i)\bdocker\s+(rm|rmi)\s+-f\b`),
}

// ValidateCommand checks a shell command against the deny list. It is a pure
// function: same input, same verdict, no state. A non-nil error names the
// pattern that matched.
func ValidateCommand(command string) error {
	// Normalize whitespace to prevent multi-space bypass
	normalized := collapseWhitespace(command)
	for _, pattern := range denyPatterns {
		if pattern.MatchString(normalized) {
			return fmt.Errorf("matches deny pattern: %s", pattern.String())
		}
	}
	return nil
}

// collapseWhitespace replaces multiple whitespace chars with a single space.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, ch := range s {
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
		} else {
			b.WriteRune(ch)
			inSpace = false
		}
	}
	return b.String()
}
