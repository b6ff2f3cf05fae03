package mempool

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcnode/core/pkg/serialization"
	"github.com/btcnode/core/pkg/types"
)

const persistVersion uint64 = 0

// zigzagEncode maps a signed integer onto the unsigned range so fee_delta,
// which is itself signed, can be written with the same unsigned VarInt
// encoding used for every other field.
func zigzagEncode(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

type savedEntry struct {
	tx        *types.Transaction
	entryTime int64
	feeDelta  int64
}

// Save snapshots the pool under the read lock, then writes the temp file,
// fsyncs and renames it with no pool lock held — the fsync+rename never
// happens inside the critical section.
func (m *Mempool) Save(path string) error {
	saved := m.snapshot()
	return saveEntries(path, saved)
}

func (m *Mempool) snapshot() []savedEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.graph.IterBy(OrderEntryTime)
	saved := make([]savedEntry, 0, len(entries))
	for _, e := range entries {
		saved = append(saved, savedEntry{tx: e.Tx, entryTime: e.Time.Unix(), feeDelta: e.FeeDelta})
	}
	return saved
}

func saveEntries(path string, entries []savedEntry) error {
	var buf bytes.Buffer
	if err := serialization.WriteUint64(&buf, persistVersion); err != nil {
		return wrapErr(IOError, "write version", err)
	}
	if err := serialization.WriteUint64(&buf, uint64(len(entries))); err != nil {
		return wrapErr(IOError, "write count", err)
	}
	for _, e := range entries {
		txBytes, err := serialization.SerializeTransaction(e.tx)
		if err != nil {
			return wrapErr(IOError, "serialize transaction", err)
		}
		buf.Write(txBytes)
		if err := serialization.WriteVarInt(&buf, uint64(e.entryTime)); err != nil {
			return wrapErr(IOError, "write entry_time", err)
		}
		if err := serialization.WriteVarInt(&buf, zigzagEncode(e.feeDelta)); err != nil {
			return wrapErr(IOError, "write fee_delta", err)
		}
	}

	tmpPath := path + ".new"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return wrapErr(IOError, "open temp file", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return wrapErr(IOError, "write temp file", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return wrapErr(IOError, "fsync temp file", err)
	}
	if err := f.Close(); err != nil {
		return wrapErr(IOError, "close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return wrapErr(IOError, "rename temp file", err)
	}
	return nil
}

// Load reads path and feeds each (tx, entry_time, fee_delta) tuple through
// admit, skipping peer attribution, exactly as a freshly-received
// transaction would be. A version mismatch or malformed item at index i
// aborts without admitting entries 0..i-1 — no partial load.
func Load(path string, admit func(tx *types.Transaction, entryTime time.Time, feeDelta int64) error) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, wrapErr(IOError, "read persistence file", err)
	}

	r := bytes.NewReader(data)
	version, err := serialization.ReadUint64(r)
	if err != nil {
		return 0, wrapErr(IOError, "read version", err)
	}
	if version != persistVersion {
		return 0, newErr(IOError, fmt.Sprintf("unsupported mempool.dat version %d", version))
	}

	count, err := serialization.ReadUint64(r)
	if err != nil {
		return 0, wrapErr(IOError, "read count", err)
	}

	parsed := make([]savedEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		tx, err := serialization.DeserializeTransaction(r)
		if err != nil {
			return 0, wrapErr(IOError, fmt.Sprintf("malformed transaction at index %d", i), err)
		}
		entryTime, err := serialization.ReadVarInt(r)
		if err != nil {
			return 0, wrapErr(IOError, fmt.Sprintf("malformed entry_time at index %d", i), err)
		}
		feeDeltaRaw, err := serialization.ReadVarInt(r)
		if err != nil {
			return 0, wrapErr(IOError, fmt.Sprintf("malformed fee_delta at index %d", i), err)
		}
		parsed = append(parsed, savedEntry{tx: tx, entryTime: int64(entryTime), feeDelta: zigzagDecode(feeDeltaRaw)})
	}

	loaded := 0
	for _, s := range parsed {
		if err := admit(s.tx, time.Unix(s.entryTime, 0), s.feeDelta); err != nil {
			continue // duplicate or now-invalid entries are simply skipped
		}
		loaded++
	}
	return loaded, nil
}

// DefaultPath returns the canonical mempool.dat path under dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "mempool.dat")
}
