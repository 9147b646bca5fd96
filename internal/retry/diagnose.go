package retry

import "regexp"

// diagnosis maps an error-text pattern to a causal explanation and the
// diagnostic commands worth running next.
type diagnosis struct {
	pattern *regexp.Regexp
	cause   string
	checks  []string
}

// diagnoses are tried in order; the first match wins.
var diagnoses = []diagnosis{
	{
		pattern: regexp.MustCompile(`(?i)connection refused`),
		cause:   "connection refused: the SSH service is likely down, or the port is wrong",
		checks:  []string{"nc -vz <host> <port>", "ssh -v <user>@<host>"},
	},
	{
		pattern: regexp.MustCompile(`(?i)host key verification failed|remote host identification has changed`),
		cause:   "host key verification failed: stale known_hosts entry for this host",
		checks:  []string{"ssh-keygen -R <host>", "ssh-keyscan <host> >> ~/.ssh/known_hosts"},
	},
	{
		pattern: regexp.MustCompile(`(?i)permission denied \(publickey|authentication failed|no supported methods remain`),
		cause:   "authentication rejected: key not accepted for this user",
		checks:  []string{"ssh-add -l", "ssh -v <user>@<host>"},
	},
	{
		pattern: regexp.MustCompile(`(?i)no route to host|network is unreachable`),
		cause:   "host unreachable: routing or firewall problem between here and the host",
		checks:  []string{"ping <host>", "traceroute <host>"},
	},
	{
		pattern: regexp.MustCompile(`(?i)connection timed out|timed out|i/o timeout`),
		cause:   "connection timed out: host offline, wrong address, or a firewall dropping packets",
		checks:  []string{"ping <host>", "nc -vz <host> <port>"},
	},
	{
		pattern: regexp.MustCompile(`(?i)could not resolve hostname|name or service not known`),
		cause:   "hostname does not resolve: DNS problem or a typo in the host",
		checks:  []string{"host <host>", "cat /etc/resolv.conf"},
	},
	{
		pattern: regexp.MustCompile(`(?i)no space left on device`),
		cause:   "remote disk is full",
		checks:  []string{"df -h (on the remote)"},
	},
	{
		pattern: regexp.MustCompile(`(?i)control socket|mux_client|ControlPath`),
		cause:   "the multiplexing control socket is unusable, likely left by a crashed master",
		checks:  []string{"sshmux cleanup", "sshmux connect <identity>"},
	},
	{
		pattern: regexp.MustCompile(`(?i)scp:|sftp:|failed to upload|failed to download`),
		cause:   "transfer protocol error: path missing or permissions wrong on one side",
		checks:  []string{"ls -ld <destination directory> (on the failing side)"},
	},
	{
		pattern: regexp.MustCompile(`(?i)command not found|not found`),
		cause:   "the remote command does not exist in the login shell's PATH",
		checks:  []string{"ssh <user>@<host> 'which <command>'"},
	},
}

// Diagnose pattern-matches captured error text and returns a best-effort
// causal explanation, or empty when nothing matches.
func Diagnose(stderr string) string {
	for _, d := range diagnoses {
		if d.pattern.MatchString(stderr) {
			return d.cause
		}
	}
	return ""
}

// SuggestedChecks returns diagnostic commands for the matched cause.
func SuggestedChecks(stderr string) []string {
	for _, d := range diagnoses {
		if d.pattern.MatchString(stderr) {
			return d.checks
		}
	}
	return nil
}
