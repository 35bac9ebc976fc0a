package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	maxGasPaymentObjects = 256
)

// ErrNoGasCoins is returned when the sender owns no SUI coins to pay gas with
var ErrNoGasCoins = errors.New("sender has no SUI coins for gas payment")

type ArgumentKind uint8

const (
	ArgGasCoin ArgumentKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument references a value inside a programmable transaction
type Argument struct {
	Kind   ArgumentKind
	Index  uint16
	Nested uint16
}

func (a Argument) String() string {
	switch a.Kind {
	case ArgGasCoin:
		return "GasCoin"
	case ArgInput:
		return fmt.Sprintf("Input(%d)", a.Index)
	case ArgResult:
		return fmt.Sprintf("Result(%d)", a.Index)
	default:
		return fmt.Sprintf("NestedResult(%d,%d)", a.Index, a.Nested)
	}
}

// MoveTarget is a fully qualified Move function: package::module::function
type MoveTarget struct {
	Package  string
	Module   string
	Function string
}

// ParseMoveTarget parses "0xpkg::module::function"
func ParseMoveTarget(target string) (MoveTarget, error) {
	parts := strings.Split(target, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return MoveTarget{}, fmt.Errorf("invalid move call target %q", target)
	}
	pkg, err := NormalizeAddress(parts[0])
	if err != nil {
		return MoveTarget{}, fmt.Errorf("invalid move call package: %w", err)
	}
	return MoveTarget{Package: pkg, Module: parts[1], Function: parts[2]}, nil
}

func (t MoveTarget) String() string {
	return t.Package + "::" + t.Module + "::" + t.Function
}

type commandKind uint8

// Command variant tags in the order of the on-chain enum
const (
	cmdMoveCall commandKind = iota
	cmdTransferObjects
	cmdSplitCoins
)

type command struct {
	kind      commandKind
	target    MoveTarget
	arguments []Argument
	subject   Argument // coin to split, or transfer recipient
}

type txInput struct {
	pure     []byte
	objectID string
}

// Transaction accumulates programmable transaction commands, in the style of
// the Sui TypeScript SDK. Builder errors are deferred until Build.
type Transaction struct {
	sender    string
	gasBudget uint64
	gasPrice  uint64
	inputs    []txInput
	commands  []command
	err       error
}

func NewTransaction() *Transaction {
	return &Transaction{}
}

func (tx *Transaction) SetGasBudget(budget uint64) {
	tx.gasBudget = budget
}

func (tx *Transaction) GasBudget() uint64 {
	return tx.gasBudget
}

// SetGasPrice pins the gas price; zero means use the reference gas price
func (tx *Transaction) SetGasPrice(price uint64) {
	tx.gasPrice = price
}

func (tx *Transaction) SetSender(sender string) {
	tx.sender = sender
}

func (tx *Transaction) Sender() string {
	return tx.sender
}

// Gas references the gas coin
func (tx *Transaction) Gas() Argument {
	return Argument{Kind: ArgGasCoin}
}

func (tx *Transaction) addInput(in txInput) Argument {
	tx.inputs = append(tx.inputs, in)
	return Argument{Kind: ArgInput, Index: uint16(len(tx.inputs) - 1)}
}

// PureU64 adds a u64 pure input
func (tx *Transaction) PureU64(v uint64) Argument {
	e := &bcsEncoder{}
	e.u64(v)
	return tx.addInput(txInput{pure: e.Bytes()})
}

// PureAddress adds an address pure input
func (tx *Transaction) PureAddress(addr string) Argument {
	raw, err := addressBytes(addr)
	if err != nil {
		tx.fail(fmt.Errorf("pure address: %w", err))
	}
	return tx.addInput(txInput{pure: raw[:]})
}

// Object adds an object input, resolved to an owned or shared reference at Build
func (tx *Transaction) Object(id string) Argument {
	norm, err := NormalizeAddress(id)
	if err != nil {
		tx.fail(fmt.Errorf("object input: %w", err))
		norm = id
	}
	for i, in := range tx.inputs {
		if in.pure == nil && in.objectID == norm {
			return Argument{Kind: ArgInput, Index: uint16(i)}
		}
	}
	return tx.addInput(txInput{objectID: norm})
}

func (tx *Transaction) addCommand(cmd command) Argument {
	tx.commands = append(tx.commands, cmd)
	return Argument{Kind: ArgResult, Index: uint16(len(tx.commands) - 1)}
}

// SplitCoins splits amounts off coin; the result holds one coin per amount
func (tx *Transaction) SplitCoins(coin Argument, amounts ...Argument) Argument {
	return tx.addCommand(command{
		kind:      cmdSplitCoins,
		arguments: amounts,
		subject:   coin,
	})
}

// MoveCall calls target ("0xpkg::module::function") with args
func (tx *Transaction) MoveCall(target string, args ...Argument) Argument {
	t, err := ParseMoveTarget(target)
	if err != nil {
		tx.fail(err)
	}
	return tx.addCommand(command{
		kind:      cmdMoveCall,
		target:    t,
		arguments: args,
	})
}

// TransferObjects sends objects to recipient
func (tx *Transaction) TransferObjects(objects []Argument, recipient Argument) {
	tx.addCommand(command{
		kind:      cmdTransferObjects,
		arguments: objects,
		subject:   recipient,
	})
}

// Err returns the first error recorded while adding commands or inputs
func (tx *Transaction) Err() error {
	return tx.err
}

func (tx *Transaction) fail(err error) {
	if tx.err == nil {
		tx.err = err
	}
}

// Describe renders the command list for logs and tests
func (tx *Transaction) Describe() []string {
	out := make([]string, 0, len(tx.commands))
	for _, cmd := range tx.commands {
		args := make([]string, len(cmd.arguments))
		for i, a := range cmd.arguments {
			args[i] = a.String()
		}
		list := "[" + strings.Join(args, ", ") + "]"

		switch cmd.kind {
		case cmdSplitCoins:
			out = append(out, fmt.Sprintf("SplitCoins(%s, %s)", cmd.subject, list))
		case cmdMoveCall:
			out = append(out, fmt.Sprintf("MoveCall(%s, %s)", cmd.target, list))
		case cmdTransferObjects:
			out = append(out, fmt.Sprintf("TransferObjects(%s, %s)", list, cmd.subject))
		}
	}
	return out
}

// InputObjects lists the object ids used as inputs
func (tx *Transaction) InputObjects() []string {
	var ids []string
	for _, in := range tx.inputs {
		if in.pure == nil {
			ids = append(ids, in.objectID)
		}
	}
	return ids
}

// BuildResolver is the subset of the RPC client Build needs to resolve
// object references, gas payment and gas price.
type BuildResolver interface {
	GetCoins(ctx context.Context, owner, coinType string, cursor *string, limit int) (*CoinPage, error)
	GetObject(ctx context.Context, id string, opts ObjectDataOptions) (*ObjectResponse, error)
	GetReferenceGasPrice(ctx context.Context) (uint64, error)
}

type objectRef struct {
	id      [AddressLength]byte
	version uint64
	digest  []byte
}

type resolvedObject struct {
	ref           objectRef
	shared        bool
	initialShared uint64
}

// Build resolves inputs against the node and returns the BCS encoded
// TransactionData ready to be signed.
func (tx *Transaction) Build(ctx context.Context, resolver BuildResolver) ([]byte, error) {
	if tx.err != nil {
		return nil, tx.err
	}
	if tx.sender == "" {
		return nil, fmt.Errorf("transaction sender is not set")
	}
	if tx.gasBudget == 0 {
		return nil, fmt.Errorf("transaction gas budget is not set")
	}

	sender, err := addressBytes(tx.sender)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}

	objects := make(map[string]resolvedObject)
	for _, id := range tx.InputObjects() {
		obj, err := resolveObject(ctx, resolver, id)
		if err != nil {
			return nil, err
		}
		objects[id] = obj
	}

	gasPrice := tx.gasPrice
	if gasPrice == 0 {
		gasPrice, err = resolver.GetReferenceGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("reference gas price: %w", err)
		}
	}

	payment, err := selectGasPayment(ctx, resolver, tx.sender, tx.gasBudget)
	if err != nil {
		return nil, err
	}

	e := &bcsEncoder{}
	e.u8(0) // TransactionData::V1
	e.u8(0) // TransactionKind::ProgrammableTransaction

	e.uleb128(uint64(len(tx.inputs)))
	for _, in := range tx.inputs {
		if in.pure != nil {
			e.u8(0) // CallArg::Pure
			e.bytes(in.pure)
			continue
		}
		obj := objects[in.objectID]
		e.u8(1) // CallArg::Object
		if obj.shared {
			e.u8(1) // ObjectArg::SharedObject
			e.fixed(obj.ref.id[:])
			e.u64(obj.initialShared)
			e.boolean(true)
		} else {
			e.u8(0) // ObjectArg::ImmOrOwnedObject
			encodeObjectRef(e, obj.ref)
		}
	}

	e.uleb128(uint64(len(tx.commands)))
	for _, cmd := range tx.commands {
		if err := encodeCommand(e, cmd); err != nil {
			return nil, err
		}
	}

	e.fixed(sender[:])

	// GasData
	e.uleb128(uint64(len(payment)))
	for _, ref := range payment {
		encodeObjectRef(e, ref)
	}
	e.fixed(sender[:])
	e.u64(gasPrice)
	e.u64(tx.gasBudget)

	e.u8(0) // TransactionExpiration::None

	return e.Bytes(), nil
}

func encodeCommand(e *bcsEncoder, cmd command) error {
	e.u8(uint8(cmd.kind))
	switch cmd.kind {
	case cmdMoveCall:
		pkg, err := addressBytes(cmd.target.Package)
		if err != nil {
			return fmt.Errorf("move call package: %w", err)
		}
		e.fixed(pkg[:])
		e.str(cmd.target.Module)
		e.str(cmd.target.Function)
		e.uleb128(0) // type arguments
		encodeArguments(e, cmd.arguments)
	case cmdTransferObjects:
		encodeArguments(e, cmd.arguments)
		encodeArgument(e, cmd.subject)
	case cmdSplitCoins:
		encodeArgument(e, cmd.subject)
		encodeArguments(e, cmd.arguments)
	default:
		return fmt.Errorf("unsupported command kind %d", cmd.kind)
	}
	return nil
}

func encodeArguments(e *bcsEncoder, args []Argument) {
	e.uleb128(uint64(len(args)))
	for _, a := range args {
		encodeArgument(e, a)
	}
}

func encodeArgument(e *bcsEncoder, a Argument) {
	e.u8(uint8(a.Kind))
	switch a.Kind {
	case ArgInput, ArgResult:
		e.u16(a.Index)
	case ArgNestedResult:
		e.u16(a.Index)
		e.u16(a.Nested)
	}
}

func encodeObjectRef(e *bcsEncoder, ref objectRef) {
	e.fixed(ref.id[:])
	e.u64(ref.version)
	e.bytes(ref.digest)
}

func resolveObject(ctx context.Context, resolver BuildResolver, id string) (resolvedObject, error) {
	resp, err := resolver.GetObject(ctx, id, ObjectDataOptions{ShowOwner: true})
	if err != nil {
		return resolvedObject{}, fmt.Errorf("resolve object %s: %w", id, err)
	}
	if resp.Data == nil {
		return resolvedObject{}, fmt.Errorf("resolve object %s: %w", id, ErrNotFound)
	}

	ref, err := toObjectRef(resp.Data.ObjectID, uint64(resp.Data.Version), resp.Data.Digest)
	if err != nil {
		return resolvedObject{}, fmt.Errorf("resolve object %s: %w", id, err)
	}

	obj := resolvedObject{ref: ref}
	if resp.Data.Owner != nil && resp.Data.Owner.Kind == OwnerShared {
		obj.shared = true
		obj.initialShared = resp.Data.Owner.InitialSharedVersion
	}
	return obj, nil
}

func toObjectRef(id string, version uint64, digest string) (objectRef, error) {
	raw, err := addressBytes(id)
	if err != nil {
		return objectRef{}, err
	}
	d, err := decodeDigest(digest)
	if err != nil {
		return objectRef{}, err
	}
	return objectRef{id: raw, version: version, digest: d}, nil
}

// selectGasPayment picks SUI coins of the sender until they cover the budget
func selectGasPayment(ctx context.Context, resolver BuildResolver, owner string, budget uint64) ([]objectRef, error) {
	var (
		refs   []objectRef
		total  = new(big.Int)
		target = new(big.Int).SetUint64(budget)
		cursor *string
	)

	for {
		page, err := resolver.GetCoins(ctx, owner, SuiCoinType, cursor, 0)
		if err != nil {
			return nil, fmt.Errorf("gas coins: %w", err)
		}
		if page == nil {
			break
		}

		for _, coin := range page.Data {
			ref, err := toObjectRef(coin.CoinObjectID, uint64(coin.Version), coin.Digest)
			if err != nil {
				return nil, fmt.Errorf("gas coin %s: %w", coin.CoinObjectID, err)
			}
			bal, ok := new(big.Int).SetString(coin.Balance, 10)
			if !ok {
				return nil, fmt.Errorf("gas coin %s: invalid balance %q", coin.CoinObjectID, coin.Balance)
			}
			refs = append(refs, ref)
			total.Add(total, bal)
			if total.Cmp(target) >= 0 || len(refs) == maxGasPaymentObjects {
				return refs, nil
			}
		}

		if !page.HasNextPage || page.NextCursor == nil {
			break
		}
		cursor = page.NextCursor
	}

	if len(refs) == 0 {
		return nil, ErrNoGasCoins
	}
	return refs, nil
}
