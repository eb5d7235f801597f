// Package walletregistry holds the set of deposit addresses being watched.
// Addresses are kept in full form for recipient matching and in trimmed form
// (without the 0x prefix) for searching inside raw call data.
package walletregistry

import (
	"context"
	"errors"
	"runtime"
	"strings"

	"github.com/gabapcia/depositwatch/internal/pkg/types"
	"github.com/gabapcia/depositwatch/internal/pkg/validator"

	"golang.org/x/sync/errgroup"
)

const (
	// addressPrefix is stripped from full addresses to get the trimmed form.
	addressPrefix = "0x"

	// parallelSearchThreshold is the wallet count below which substring
	// search runs on the calling goroutine.
	parallelSearchThreshold = 256
)

// ErrInvalidAddress is returned by New for entries that are not 20-byte hex
// addresses.
var ErrInvalidAddress = errors.New("invalid wallet address")

// errMatched stops sibling search workers once one of them found a match.
var errMatched = errors.New("match found")

// Registry is the immutable set of watched wallets. full[i] and trimmed[i]
// always describe the same wallet. All methods are safe for concurrent use.
type Registry struct {
	full    []string
	trimmed []string

	fullSet    types.Set[string]
	trimmedSet types.Set[string]
}

// New validates and normalizes addresses. Addresses are lowercased and
// duplicates are dropped keeping the first occurrence.
func New(addresses []string) (*Registry, error) {
	r := &Registry{
		fullSet:    types.NewSet[string](),
		trimmedSet: types.NewSet[string](),
	}

	var errs []error
	for _, addr := range addresses {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if err := validator.Var(addr, "required,eth_addr"); err != nil {
			errs = append(errs, errors.Join(ErrInvalidAddress, err))
			continue
		}

		if r.fullSet.Contains(addr) {
			continue
		}

		trimmed := addr[len(addressPrefix):]
		r.full = append(r.full, addr)
		r.trimmed = append(r.trimmed, trimmed)
		r.fullSet.Add(addr)
		r.trimmedSet.Add(trimmed)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return r, nil
}

// Len returns the number of watched wallets.
func (r *Registry) Len() int {
	return len(r.full)
}

// Full returns a copy of the lowercase addresses in registration order.
func (r *Registry) Full() []string {
	return append([]string(nil), r.full...)
}

// Trimmed returns a copy of the prefix-less addresses, index-aligned with Full.
func (r *Registry) Trimmed() []string {
	return append([]string(nil), r.trimmed...)
}

// IsWatched reports whether address (with prefix, any case) is watched.
func (r *Registry) IsWatched(address string) bool {
	return r.fullSet.Contains(strings.ToLower(address))
}

// IsWatchedTrimmed reports whether a prefix-less address is watched.
func (r *Registry) IsWatchedTrimmed(trimmed string) bool {
	return r.trimmedSet.Contains(strings.ToLower(trimmed))
}

// FindBySubstring reports a watched wallet whose trimmed form appears anywhere
// in callData. Which wallet is returned when several match is unspecified.
//
// Large registries are split in chunks searched concurrently. Each worker
// writes only its own result slot, and the first hit cancels the others.
func (r *Registry) FindBySubstring(callData string) (string, bool) {
	if callData == "" || len(r.trimmed) == 0 {
		return "", false
	}

	data := strings.ToLower(callData)

	if len(r.trimmed) < parallelSearchThreshold {
		return searchChunk(context.Background(), data, r.trimmed)
	}

	workers := min(runtime.GOMAXPROCS(0), len(r.trimmed)/(parallelSearchThreshold/4))
	chunkSize := (len(r.trimmed) + workers - 1) / workers
	results := make([]string, workers)

	g, ctx := errgroup.WithContext(context.Background())
	for i := range workers {
		start := i * chunkSize
		end := min(start+chunkSize, len(r.trimmed))
		if start >= end {
			break
		}

		chunk := r.trimmed[start:end]
		g.Go(func() error {
			if match, ok := searchChunk(ctx, data, chunk); ok {
				results[i] = match
				return errMatched
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, match := range results {
		if match != "" {
			return match, true
		}
	}

	return "", false
}

func searchChunk(ctx context.Context, data string, wallets []string) (string, bool) {
	for i, w := range wallets {
		if i%64 == 0 && ctx.Err() != nil {
			return "", false
		}
		if strings.Contains(data, w) {
			return w, true
		}
	}
	return "", false
}
