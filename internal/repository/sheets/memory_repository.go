package sheets

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository is an in-process Repository. It backs the offline mode
// (STORE_BACKEND=memory) and the tests.
type MemoryRepository struct {
	mu     sync.Mutex
	sheets map[string][][]string
	writes int
}

// NewMemoryRepository returns an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sheets: map[string][][]string{}}
}

// Seed replaces the content of a sheet. It does not count as a write.
func (r *MemoryRepository) Seed(sheet string, rows [][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make([][]string, len(rows))
	for i, row := range rows {
		copied[i] = append([]string(nil), row...)
	}
	r.sheets[sheet] = copied
}

// Writes reports how many mutating calls succeeded.
func (r *MemoryRepository) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *MemoryRepository) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.sheets[sheet]
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (r *MemoryRepository) ReadRow(ctx context.Context, sheet string, row int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if row < 1 {
		return nil, fmt.Errorf("row %d out of range", row)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.sheets[sheet]
	if row > len(rows) {
		return nil, nil
	}
	return append([]string(nil), rows[row-1]...), nil
}

func (r *MemoryRepository) AppendRow(ctx context.Context, sheet string, values []interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sheets[sheet] = append(r.sheets[sheet], rowStrings(values))
	r.writes++
	return nil
}

func (r *MemoryRepository) UpdateRow(ctx context.Context, sheet string, row int, values []interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.sheets[sheet]
	if row < 1 || row > len(rows) {
		return fmt.Errorf("row %d out of range", row)
	}

	current := rows[row-1]
	for i, v := range values {
		for len(current) <= i {
			current = append(current, "")
		}
		current[i] = cellString(v)
	}
	rows[row-1] = current
	r.writes++
	return nil
}

func (r *MemoryRepository) UpdateCell(ctx context.Context, sheet string, row, col int, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.sheets[sheet]
	if row < 1 || row > len(rows) || col < 1 {
		return fmt.Errorf("cell %d,%d out of range", row, col)
	}

	current := rows[row-1]
	for len(current) < col {
		current = append(current, "")
	}
	current[col-1] = cellString(value)
	rows[row-1] = current
	r.writes++
	return nil
}

func (r *MemoryRepository) DeleteRow(ctx context.Context, sheet string, row int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.sheets[sheet]
	if row < 2 || row > len(rows) {
		return fmt.Errorf("row %d out of range", row)
	}

	r.sheets[sheet] = append(rows[:row-1], rows[row:]...)
	r.writes++
	return nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*GoogleSheetRepository)(nil)
)
