package chromedevtools

import (
	"context"
	"net"
	"os"
	"strings"
	"time"
)

const dockerHostAlias = "host.docker.internal"

var (
	inDockerFunc  = inDocker
	lookupIPAddrs = net.DefaultResolver.LookupIPAddr
)

// VersionURLResolved behaves like VersionURL, but inside a container it resolves
// the host to an IPv4 literal. Chrome rejects DevTools requests whose Host header
// is not localhost or an IP, so host.docker.internal must not reach it as a name.
func VersionURLResolved(ctx context.Context, host, port string) (string, string) {
	host = strings.TrimSpace(host)
	if host == "" {
		host = DefaultHost
		if inDockerFunc() {
			host = dockerHostAlias
		}
	}

	effective := host
	if inDockerFunc() && net.ParseIP(host) == nil {
		lctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if addrs, err := lookupIPAddrs(lctx, host); err == nil {
			for _, a := range addrs {
				if v4 := a.IP.To4(); v4 != nil {
					effective = v4.String()
					break
				}
			}
		}
	}

	return VersionURL(effective, port), effective
}

func inDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
