package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/betbot/poolhedge/internal/domain"
)

const (
	keyPrefix   = "hedge/"
	sequenceKey = "seq/hedge"
)

// Journal 对冲审计记录（Badger KV），只追加，不会被读回累加器
type Journal struct {
	db  *badger.DB
	seq *badger.Sequence // 只读模式下为 nil
}

type OpenOptions struct {
	Path     string
	InMemory bool // 测试用
	ReadOnly bool
}

func Open(opts OpenOptions) (*Journal, error) {
	if !opts.InMemory && strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("journal: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	j := &Journal{db: db}
	if !opts.ReadOnly {
		j.seq, err = db.GetSequence([]byte(sequenceKey), 100)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: sequence: %w", err)
		}
	}
	return j, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	var errs []error
	if j.seq != nil {
		errs = append(errs, j.seq.Release())
	}
	errs = append(errs, j.db.Close())
	return errors.Join(errs...)
}

// key hedge/<pool>/<unix-nano>/<seq>，数字零填充，同一池子内按时间有序；
// 同一纳秒内的记录靠递增序号区分
func key(pool string, at time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d/%020d", poolPrefix(pool), at.UnixNano(), seq))
}

// poolPrefix 池子名做路径转义，避免 "a" 的前缀覆盖到 "a/b"
func poolPrefix(pool string) []byte {
	return []byte(keyPrefix + url.PathEscape(pool) + "/")
}

// RecordHedge 写入一条记录；CreatedAt 为空时使用当前时间
func (j *Journal) RecordHedge(_ context.Context, rec domain.HedgeRecord) error {
	if j == nil || j.db == nil {
		return errors.New("journal: not opened")
	}
	if j.seq == nil {
		return errors.New("journal: opened read-only")
	}
	if strings.TrimSpace(rec.Pool) == "" {
		return errors.New("journal: pool is empty")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: encode: %w", err)
	}
	seq, err := j.seq.Next()
	if err != nil {
		return fmt.Errorf("journal: next sequence: %w", err)
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(rec.Pool, rec.CreatedAt, seq), val)
	})
}

// Recent 某个池子最近的 limit 条记录，新的在前
func (j *Journal) Recent(pool string, limit int) ([]domain.HedgeRecord, error) {
	if j == nil || j.db == nil {
		return nil, errors.New("journal: not opened")
	}
	if limit <= 0 {
		limit = 20
	}
	prefix := poolPrefix(pool)
	out := make([]domain.HedgeRecord, 0, limit)
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// 反向迭代需要从前缀的最大 key 开始
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var rec domain.HedgeRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("journal: read %s: %w", pool, err)
	}
	return out, nil
}
