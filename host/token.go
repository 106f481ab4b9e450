package host

import (
	"reflect"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/govm-net/sandbox/auth"
	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/storage"
	"github.com/govm-net/sandbox/types"
)

// tokenContract is the built-in native token contract. A ledger entry
// with the ExecToken executable dispatches here instead of into a
// virtual machine. Function symbols map to methods by title-casing:
// "transfer" dispatches to Transfer.
type tokenContract struct {
	id types.Hash
}

var titleCaser = cases.Title(language.English)

// tokenCall dispatches a token contract function by name.
func tokenCall(h *Host, id types.Hash, fn types.Symbol, args []types.Val) (types.Val, error) {
	token := &tokenContract{id: id}
	method := reflect.ValueOf(token).MethodByName(titleCaser.String(string(fn)))
	if !method.IsValid() {
		return types.Void(), h.err(core.ErrContext, core.CodeMissingValue,
			"unknown token function")
	}
	fnT, ok := method.Interface().(func(*Host, []types.Val) (types.Val, error))
	if !ok {
		return types.Void(), h.err(core.ErrContext, core.CodeInternalError,
			"token function has wrong signature")
	}
	return fnT(h, args)
}

// Name returns the token display name.
func (t *tokenContract) Name(h *Host, args []types.Val) (types.Val, error) {
	return h.StringObject("native token")
}

// Decimals returns the token's decimal count.
func (t *tokenContract) Decimals(h *Host, args []types.Val) (types.Val, error) {
	return types.U32(7), nil
}

// Balance returns the balance of the address in args[0].
func (t *tokenContract) Balance(h *Host, args []types.Val) (types.Val, error) {
	if len(args) != 1 {
		return types.Void(), h.err(core.ErrContext, core.CodeUnexpectedSize,
			"balance expects one argument")
	}
	addr, err := h.ObjectAddress(args[0])
	if err != nil {
		return types.Void(), err
	}
	amount, err := t.balance(h, addr)
	if err != nil {
		return types.Void(), err
	}
	return h.U64Object(amount)
}

// Mint credits args[1] units to the address in args[0].
func (t *tokenContract) Mint(h *Host, args []types.Val) (types.Val, error) {
	if len(args) != 2 {
		return types.Void(), h.err(core.ErrContext, core.CodeUnexpectedSize,
			"mint expects two arguments")
	}
	to, err := h.ObjectAddress(args[0])
	if err != nil {
		return types.Void(), err
	}
	amount, err := h.ObjectU64(args[1])
	if err != nil {
		return types.Void(), err
	}
	current, err := t.balance(h, to)
	if err != nil {
		return types.Void(), err
	}
	t.setBalance(h, to, current+amount)
	return types.Void(), nil
}

// Transfer moves args[2] units from args[0] to args[1], consuming an
// authorization for the sender.
func (t *tokenContract) Transfer(h *Host, args []types.Val) (types.Val, error) {
	if len(args) != 3 {
		return types.Void(), h.err(core.ErrContext, core.CodeUnexpectedSize,
			"transfer expects three arguments")
	}
	from, err := h.ObjectAddress(args[0])
	if err != nil {
		return types.Void(), err
	}
	to, err := h.ObjectAddress(args[1])
	if err != nil {
		return types.Void(), err
	}
	amount, err := h.ObjectU64(args[2])
	if err != nil {
		return types.Void(), err
	}

	if err := h.auth.Authorize(auth.Invocation{Contract: t.id, Function: "transfer"}); err != nil {
		return types.Void(), h.err(core.ErrAuth, core.CodeInvalidAction,
			"transfer is not authorized")
	}

	fromBalance, err := t.balance(h, from)
	if err != nil {
		return types.Void(), err
	}
	if fromBalance < amount {
		return types.Void(), h.err(core.ErrContext, core.CodeInvalidAction,
			"insufficient balance")
	}
	toBalance, err := t.balance(h, to)
	if err != nil {
		return types.Void(), err
	}
	t.setBalance(h, from, fromBalance-amount)
	t.setBalance(h, to, toBalance+amount)
	return types.Void(), nil
}

// Burn removes args[1] units from the address in args[0].
func (t *tokenContract) Burn(h *Host, args []types.Val) (types.Val, error) {
	if len(args) != 2 {
		return types.Void(), h.err(core.ErrContext, core.CodeUnexpectedSize,
			"burn expects two arguments")
	}
	from, err := h.ObjectAddress(args[0])
	if err != nil {
		return types.Void(), err
	}
	amount, err := h.ObjectU64(args[1])
	if err != nil {
		return types.Void(), err
	}
	current, err := t.balance(h, from)
	if err != nil {
		return types.Void(), err
	}
	if current < amount {
		return types.Void(), h.err(core.ErrContext, core.CodeInvalidAction,
			"insufficient balance")
	}
	t.setBalance(h, from, current-amount)
	return types.Void(), nil
}

// balance reads a holder's balance; a missing entry means zero.
func (t *tokenContract) balance(h *Host, holder types.Address) (uint64, error) {
	entry, err := h.storage.Get(storage.BalanceKey(t.id, holder))
	if err != nil {
		if core.IsError(err, core.ErrStorage, core.CodeMissingValue) {
			return 0, nil
		}
		return 0, err
	}
	return entry.Amount, nil
}

func (t *tokenContract) setBalance(h *Host, holder types.Address, amount uint64) {
	h.storage.Put(storage.BalanceKey(t.id, holder), storage.Entry{Amount: amount})
}
