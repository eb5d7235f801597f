package walletregistry

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gabapcia/depositwatch/internal/pkg/validator"
)

// ErrNoWallets is returned when a wallet source yields no address.
var ErrNoWallets = errors.New("no wallets to watch")

// WalletStorage persists the list of watched addresses between runs.
type WalletStorage interface {
	// RegisterWallet adds address. Registering twice is a no-op.
	RegisterWallet(ctx context.Context, address string) error

	// UnregisterWallet removes address. Removing an unknown address is a no-op.
	UnregisterWallet(ctx context.Context, address string) error

	// ListWallets returns every registered address in unspecified order.
	ListWallets(ctx context.Context) ([]string, error)
}

// Service manages the persisted wallet list and builds a Registry from it.
// Changes only reach a running watcher after it is restarted, since a
// Registry never changes once built.
type Service interface {
	StartWatching(ctx context.Context, address string) error
	StopWatching(ctx context.Context, address string) error
	Load(ctx context.Context) (*Registry, error)
}

type service struct {
	walletStorage WalletStorage
}

var _ Service = (*service)(nil)

// NewService returns a Service storing the watched set in ws.
func NewService(ws WalletStorage) *service {
	return &service{
		walletStorage: ws,
	}
}

func normalize(address string) (string, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if err := validator.Var(address, "required,eth_addr"); err != nil {
		return "", errors.Join(ErrInvalidAddress, err)
	}
	return address, nil
}

// StartWatching validates address and adds its lower-case form to the
// watched set.
func (s *service) StartWatching(ctx context.Context, address string) error {
	address, err := normalize(address)
	if err != nil {
		return err
	}

	return s.walletStorage.RegisterWallet(ctx, address)
}

// StopWatching removes address from the watched set.
func (s *service) StopWatching(ctx context.Context, address string) error {
	address, err := normalize(address)
	if err != nil {
		return err
	}

	return s.walletStorage.UnregisterWallet(ctx, address)
}

// Load reads every stored wallet into a new Registry.
func (s *service) Load(ctx context.Context) (*Registry, error) {
	addresses, err := s.walletStorage.ListWallets(ctx)
	if err != nil {
		return nil, err
	}

	if len(addresses) == 0 {
		return nil, ErrNoWallets
	}

	return New(addresses)
}

// ReadAddresses reads one address per line. Surrounding spaces are dropped,
// and blank lines and lines starting with '#' are skipped.
func ReadAddresses(r io.Reader) ([]string, error) {
	var addresses []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addresses = append(addresses, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(addresses) == 0 {
		return nil, ErrNoWallets
	}

	return addresses, nil
}
