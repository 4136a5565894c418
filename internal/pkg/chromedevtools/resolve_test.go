package chromedevtools

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func stubDocker(t *testing.T, inContainer bool, lookup func(context.Context, string) ([]net.IPAddr, error)) {
	t.Helper()
	origInDocker, origLookup := inDockerFunc, lookupIPAddrs
	t.Cleanup(func() {
		inDockerFunc = origInDocker
		lookupIPAddrs = origLookup
	})
	inDockerFunc = func() bool { return inContainer }
	lookupIPAddrs = lookup
}

func noLookup(t *testing.T) func(context.Context, string) ([]net.IPAddr, error) {
	return func(_ context.Context, host string) ([]net.IPAddr, error) {
		t.Fatalf("unexpected lookup of %q", host)
		return nil, nil
	}
}

func TestVersionURLResolved_ContainerPicksIPv4(t *testing.T) {
	stubDocker(t, true, func(_ context.Context, host string) ([]net.IPAddr, error) {
		require.Equal(t, dockerHostAlias, host)
		return []net.IPAddr{{IP: net.ParseIP("::1")}, {IP: net.ParseIP("192.0.2.10")}}, nil
	})

	u, host := VersionURLResolved(context.Background(), "", "")
	require.Equal(t, "192.0.2.10", host)
	require.Equal(t, "http://192.0.2.10:9222/json/version", u)
}

func TestVersionURLResolved_ContainerLookupFailureKeepsName(t *testing.T) {
	stubDocker(t, true, func(context.Context, string) ([]net.IPAddr, error) {
		return nil, &net.DNSError{Err: "no such host", Name: "chrome.internal"}
	})

	u, host := VersionURLResolved(context.Background(), "chrome.internal", "9333")
	require.Equal(t, "chrome.internal", host)
	require.Equal(t, "http://chrome.internal:9333/json/version", u)
}

func TestVersionURLResolved_SkipsLookup(t *testing.T) {
	cases := []struct {
		name        string
		inContainer bool
		host        string
		wantURL     string
	}{
		{"ip literal in container", true, "10.0.0.1", "http://10.0.0.1:9222/json/version"},
		{"name on host", false, "host.docker.internal", "http://host.docker.internal:9222/json/version"},
		{"default on host", false, "", "http://127.0.0.1:9222/json/version"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stubDocker(t, tc.inContainer, noLookup(t))
			u, _ := VersionURLResolved(context.Background(), tc.host, "9222")
			require.Equal(t, tc.wantURL, u)
		})
	}
}
