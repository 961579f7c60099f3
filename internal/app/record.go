package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Record 手动执行一次记录周期并输出结果 JSON。
func (a *App) Record(ctx context.Context) error {
	clk, err := a.newClock()
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := a.newRecorder(clk, store)
	if err != nil {
		return err
	}

	result := rec.Record(ctx)

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(encoded))
	return nil
}
