package avax

import (
	"context"
	"strings"

	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/corewallet/internal/chain"
	cwerr "github.com/mrz1836/corewallet/pkg/errors"
)

// utxoPageLimit is the node's maximum page size for getUTXOs.
const utxoPageLimit = 1024

// Caller is the JSON-RPC subset used by Client.
type Caller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// Client queries and submits to the X or P chain endpoint of a node.
type Client struct {
	rpc    Caller
	alias  string
	codec  Codec
	retry  chain.RetryConfig
	closer func()
}

// Dial connects to <baseURL>/ext/bc/<alias>.
func Dial(ctx context.Context, baseURL, alias string) (*Client, error) {
	if alias != AliasX && alias != AliasP {
		return nil, unsupportedAlias(alias)
	}
	url := strings.TrimSuffix(baseURL, "/") + "/ext/bc/" + alias
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, cwerr.Wrap(cwerr.ErrNetworkError, "dialing %s: %v", url, err)
	}
	return &Client{rpc: c, alias: alias, retry: chain.DefaultRetryConfig(), closer: c.Close}, nil
}

// NewClient wraps an existing caller.
func NewClient(caller Caller, alias string) *Client {
	return &Client{rpc: caller, alias: alias, retry: chain.DefaultRetryConfig()}
}

// Close releases the connection.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

func (c *Client) method(name string) string {
	if c.alias == AliasP {
		return "platform." + name
	}
	return "avm." + name
}

type getUTXOsArgs struct {
	Addresses  []string `json:"addresses"`
	Limit      int      `json:"limit"`
	StartIndex *index   `json:"startIndex,omitempty"`
	Encoding   string   `json:"encoding"`
}

type index struct {
	Address string `json:"address"`
	UTXO    string `json:"utxo"`
}

type getUTXOsReply struct {
	NumFetched string   `json:"numFetched"`
	UTXOs      []string `json:"utxos"`
	EndIndex   index    `json:"endIndex"`
	Encoding   string   `json:"encoding"`
}

// GetUTXOs returns every UTXO owned by the addresses, following pagination.
func (c *Client) GetUTXOs(ctx context.Context, addresses []string) ([]UTXO, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	args := getUTXOsArgs{
		Addresses: addresses,
		Limit:     utxoPageLimit,
		Encoding:  "hex",
	}

	var out []UTXO
	seen := make(map[string]bool)
	for {
		reply, err := chain.Retry(ctx, c.retry, func(ctx context.Context) (getUTXOsReply, error) {
			var r getUTXOsReply
			if err := c.rpc.CallContext(ctx, &r, c.method("getUTXOs"), args); err != nil {
				return r, chain.WrapRetryable(err)
			}
			return r, nil
		})
		if err != nil {
			return nil, cwerr.Wrap(cwerr.ErrNetworkError, "%s: %v", c.method("getUTXOs"), err)
		}

		for _, enc := range reply.UTXOs {
			if seen[enc] {
				continue
			}
			seen[enc] = true
			raw, err := formatting.Decode(formatting.Hex, enc)
			if err != nil {
				return nil, malformed(err)
			}
			u, ok, err := c.codec.UnmarshalUTXO(c.alias, raw)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, u)
			}
		}

		if len(reply.UTXOs) < utxoPageLimit {
			return out, nil
		}
		next := reply.EndIndex
		args.StartIndex = &next
	}
}

type issueTxArgs struct {
	Tx       string `json:"tx"`
	Encoding string `json:"encoding"`
}

type issueTxReply struct {
	TxID string `json:"txID"`
}

// IssueTx submits signed transaction bytes and returns the tx id.
func (c *Client) IssueTx(ctx context.Context, signed []byte) (string, error) {
	enc, err := formatting.Encode(formatting.Hex, signed)
	if err != nil {
		return "", malformed(err)
	}
	var reply issueTxReply
	err = c.rpc.CallContext(ctx, &reply, c.method("issueTx"), issueTxArgs{
		Tx:       enc,
		Encoding: "hex",
	})
	if err != nil {
		return "", cwerr.Wrap(cwerr.ErrTxRejected, "%s: %v", c.method("issueTx"), err)
	}
	want := TxHash(signed).String()
	if reply.TxID == "" {
		return want, nil
	}
	if reply.TxID != want {
		return "", cwerr.WithDetails(cwerr.ErrTxRejected, map[string]string{
			"expected": want,
			"got":      reply.TxID,
		})
	}
	return reply.TxID, nil
}
