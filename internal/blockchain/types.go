package blockchain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// SuiCoinType is the fully qualified type of the native gas coin
	SuiCoinType = "0x2::sui::SUI"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Uint64 decodes u64 values the node sends either as JSON strings or numbers
type Uint64 uint64

func (u *Uint64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid u64 %q: %w", string(data), err)
	}
	*u = Uint64(v)
	return nil
}

func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

// Coin is one coin object owned by an address
type Coin struct {
	CoinType            string `json:"coinType"`
	CoinObjectID        string `json:"coinObjectId"`
	Version             Uint64 `json:"version"`
	Digest              string `json:"digest"`
	Balance             string `json:"balance"`
	PreviousTransaction string `json:"previousTransaction,omitempty"`
}

// CoinPage is a page of suix_getCoins. Data is nil when the node returned no list.
type CoinPage struct {
	Data        []Coin  `json:"data"`
	NextCursor  *string `json:"nextCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

// Balance is the aggregated balance of one coin type for an owner
type Balance struct {
	CoinType        string            `json:"coinType"`
	CoinObjectCount int               `json:"coinObjectCount"`
	TotalBalance    string            `json:"totalBalance"`
	LockedBalance   map[string]string `json:"lockedBalance,omitempty"`
}

type ObjectDataOptions struct {
	ShowType                bool `json:"showType,omitempty"`
	ShowOwner               bool `json:"showOwner,omitempty"`
	ShowPreviousTransaction bool `json:"showPreviousTransaction,omitempty"`
	ShowDisplay             bool `json:"showDisplay,omitempty"`
	ShowContent             bool `json:"showContent,omitempty"`
	ShowBcs                 bool `json:"showBcs,omitempty"`
	ShowStorageRebate       bool `json:"showStorageRebate,omitempty"`
}

// ObjectResponse is the result of sui_getObject
type ObjectResponse struct {
	Data  *ObjectData     `json:"data,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

type ObjectData struct {
	ObjectID string       `json:"objectId"`
	Version  Uint64       `json:"version"`
	Digest   string       `json:"digest"`
	Type     string       `json:"type,omitempty"`
	Owner    *Owner       `json:"owner,omitempty"`
	Content  *MoveContent `json:"content,omitempty"`
}

// MoveContent is the parsed content of a Move object; Fields is left raw
// because its shape depends on the Move struct.
type MoveContent struct {
	DataType          string          `json:"dataType"`
	Type              string          `json:"type,omitempty"`
	HasPublicTransfer bool            `json:"hasPublicTransfer,omitempty"`
	Fields            json.RawMessage `json:"fields,omitempty"`
}

const (
	OwnerAddress   = "AddressOwner"
	OwnerObject    = "ObjectOwner"
	OwnerShared    = "Shared"
	OwnerImmutable = "Immutable"
)

// Owner flattens the node's owner enum, which is either a bare string
// ("Immutable") or a single-key object.
type Owner struct {
	Kind                 string
	Address              string
	InitialSharedVersion uint64
}

func (o *Owner) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err == nil {
		o.Kind = kind
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}

	for key, value := range raw {
		o.Kind = key
		switch key {
		case OwnerShared:
			var shared struct {
				InitialSharedVersion Uint64 `json:"initial_shared_version"`
			}
			if err := json.Unmarshal(value, &shared); err != nil {
				return fmt.Errorf("invalid shared owner: %w", err)
			}
			o.InitialSharedVersion = uint64(shared.InitialSharedVersion)
		case OwnerAddress, OwnerObject:
			if err := json.Unmarshal(value, &o.Address); err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
		}
		return nil
	}
	return fmt.Errorf("empty owner")
}

func (o Owner) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OwnerShared:
		return json.Marshal(map[string]any{
			OwnerShared: map[string]uint64{"initial_shared_version": o.InitialSharedVersion},
		})
	case OwnerAddress, OwnerObject:
		return json.Marshal(map[string]string{o.Kind: o.Address})
	default:
		return json.Marshal(o.Kind)
	}
}

type TransactionBlockResponseOptions struct {
	ShowInput          bool `json:"showInput,omitempty"`
	ShowRawInput       bool `json:"showRawInput,omitempty"`
	ShowEffects        bool `json:"showEffects,omitempty"`
	ShowEvents         bool `json:"showEvents,omitempty"`
	ShowObjectChanges  bool `json:"showObjectChanges,omitempty"`
	ShowBalanceChanges bool `json:"showBalanceChanges,omitempty"`
	ShowRawEffects     bool `json:"showRawEffects,omitempty"`
}

// TransactionBlockResponse is returned by execute and get transaction calls
type TransactionBlockResponse struct {
	Digest        string              `json:"digest"`
	Effects       *TransactionEffects `json:"effects,omitempty"`
	ObjectChanges []ObjectChange      `json:"objectChanges,omitempty"`
	RawEffects    json.RawMessage     `json:"rawEffects,omitempty"`
	Errors        []string            `json:"errors,omitempty"`
	Checkpoint    string              `json:"checkpoint,omitempty"`
}

type TransactionEffects struct {
	Status            ExecutionStatus `json:"status"`
	TransactionDigest string          `json:"transactionDigest,omitempty"`
}

type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ObjectChange is one entry of objectChanges (created, mutated, transferred...)
type ObjectChange struct {
	Type       string `json:"type"`
	Sender     string `json:"sender,omitempty"`
	ObjectID   string `json:"objectId,omitempty"`
	ObjectType string `json:"objectType,omitempty"`
	Version    Uint64 `json:"version,omitempty"`
	Digest     string `json:"digest,omitempty"`
	Owner      *Owner `json:"owner,omitempty"`
}

// Status returns the effects status, or "" when effects are absent
func (r *TransactionBlockResponse) Status() string {
	if r == nil || r.Effects == nil {
		return ""
	}
	return r.Effects.Status.Status
}

// CreatedObjects lists the ids of objects created by the transaction
func (r *TransactionBlockResponse) CreatedObjects() []string {
	if r == nil {
		return nil
	}
	var ids []string
	for _, change := range r.ObjectChanges {
		if change.Type == "created" && change.ObjectID != "" {
			ids = append(ids, change.ObjectID)
		}
	}
	return ids
}
