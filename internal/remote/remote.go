// Package remote provides this toolkit's two external-input
// collaborators: fetching a compiled contract class over a Starknet
// JSON-RPC endpoint, and locating a locally compiled Sierra file
// under a Scarb project's build output, for the CLI's
// `--remote`/`--scarb` flags.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"sierrascan/internal/util"
)

const jsonContentType = "application/json"

// Network selects which Starknet chain a fetch targets.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkSepolia Network = "sepolia"
)

// EnvRPCURL is the environment variable this package's default
// fetcher consults for its JSON-RPC endpoint, taking priority over
// any endpoint configured on the fetcher itself.
const EnvRPCURL = "STARKNET_RPC_URL"

// Fetcher is the external collaborator this toolkit's --remote flag
// is written against: retrieve the raw contract-class JSON bytes for
// a class hash or contract address on a given network.
type Fetcher interface {
	Fetch(ctx context.Context, address string, network Network) ([]byte, error)
}

// HTTPFetcher retrieves a contract class via a Starknet JSON-RPC
// endpoint's starknet_getClassAt method, using the shared HTTP client
// internal/util already tunes for outbound calls.
type HTTPFetcher struct {
	// Endpoints optionally maps a network to its RPC URL. STARKNET_RPC_URL,
	// when set, always takes priority over this map.
	Endpoints map[Network]string
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{}
}

func (f *HTTPFetcher) endpoint(network Network) (string, error) {
	if v := os.Getenv(EnvRPCURL); v != "" {
		return v, nil
	}
	if f.Endpoints != nil {
		if v, ok := f.Endpoints[network]; ok && v != "" {
			return v, nil
		}
	}
	return "", errors.Errorf("remote: no RPC endpoint configured for network %q (set %s)", network, EnvRPCURL)
}

// jsonRPCRequest and jsonRPCResponse mirror the minimal envelope every
// Starknet JSON-RPC method shares; only Result is inspected here, the
// contract-class adapter takes it from there.
type jsonRPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *jsonRPCError   `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Fetch calls starknet_getClassAt against the latest block for
// address, returning the raw contract-class JSON document.
func (f *HTTPFetcher) Fetch(ctx context.Context, address string, network Network) ([]byte, error) {
	endpoint, err := f.endpoint(network)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "starknet_getClassAt",
		Params:  []interface{}{"latest", address},
	})
	if err != nil {
		return nil, errors.Wrap(err, "remote: encode request")
	}
	resp, err := util.Post(ctx, endpoint, jsonContentType, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "remote: fetch %s from %s", address, endpoint)
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "remote: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("remote: %s returned status %d: %s", endpoint, resp.StatusCode, raw)
	}

	var rpcResp jsonRPCResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, errors.Wrap(err, "remote: decode response")
	}
	if rpcResp.Error != nil {
		return nil, errors.Errorf("remote: rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if len(rpcResp.Result) == 0 {
		return nil, errors.Errorf("remote: empty result fetching %s", address)
	}
	return rpcResp.Result, nil
}

// LocateScarbArtifact implements --scarb: find the compiled Sierra
// file a Scarb build produced under ./target/dev. An ambiguous build
// directory (more than one .sierra file, e.g. a multi-target package)
// is an error rather than a silent pick.
func LocateScarbArtifact(projectDir string) (string, error) {
	pattern := filepath.Join(projectDir, "target", "dev", "*.sierra")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", errors.Wrapf(err, "remote: glob %s", pattern)
	}
	switch len(matches) {
	case 0:
		return "", errors.Errorf("remote: no compiled Sierra file found under %s", filepath.Join(projectDir, "target", "dev"))
	case 1:
		return matches[0], nil
	default:
		return "", errors.Errorf("remote: multiple Sierra files found under %s: %v", filepath.Join(projectDir, "target", "dev"), matches)
	}
}

// ReadScarbArtifact is LocateScarbArtifact followed by a read, the
// single call the CLI's --scarb handling actually needs.
func ReadScarbArtifact(projectDir string) ([]byte, error) {
	path, err := LocateScarbArtifact(projectDir)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "remote: read %s", path)
	}
	return data, nil
}
