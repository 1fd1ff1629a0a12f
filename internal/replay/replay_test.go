package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"tautils/internal/model"
	"tautils/internal/strategy"
)

type fakeSource map[string][]model.Bar

func (f fakeSource) ReadBars(symbol string, afterTS int64) ([]model.Bar, error) {
	if symbol == "BROKEN" {
		return nil, errors.New("disk gone")
	}
	var out []model.Bar
	for _, b := range f[symbol] {
		if b.Time().Unix() > afterTS {
			out = append(out, b)
		}
	}
	return out, nil
}

var t0 = time.Date(2024, 1, 15, 9, 15, 0, 0, time.UTC)

func mk(sym string, min int) model.Bar {
	return model.NewBar().SetSymbol(sym).SetTime(t0.Add(time.Duration(min) * time.Minute)).SetClose(float64(min))
}

func TestRun_MergesByTime(t *testing.T) {
	src := fakeSource{
		"A": {mk("A", 0), mk("A", 2), mk("A", 4)},
		"B": {mk("B", 1), mk("B", 2), mk("B", 3)},
	}
	out := make(chan model.MarketData, 10)
	n, err := New(src).Run(context.Background(), []string{"A", "B"}, t0.Unix(), 0, out)
	if err != nil {
		t.Fatal(err)
	}
	close(out)

	// t0 itself is excluded by fromTS.
	if n != 5 {
		t.Fatalf("emitted %d, want 5", n)
	}
	var got []string
	for md := range out {
		b, _ := md.Bar()
		got = append(got, b.Symbol()+b.Time().Format("04"))
	}
	want := []string{"B16", "A17", "B17", "B18", "A19"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	out := make(chan model.MarketData, 1)
	if _, err := New(fakeSource{}).Run(context.Background(), []string{"BROKEN"}, 0, 0, out); err == nil {
		t.Error("expected source error")
	}

	n, err := New(fakeSource{}).Run(context.Background(), []string{"NONE"}, 0, 0, out)
	if !errors.Is(err, strategy.ErrEmptyIterator) || n != 0 {
		t.Errorf("empty replay: n=%d err=%v", n, err)
	}
}

func TestRun_Cancel(t *testing.T) {
	src := fakeSource{"A": {mk("A", 0), mk("A", 1), mk("A", 2)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan model.MarketData) // unbuffered, nobody reads
	n, err := New(src).Run(ctx, []string{"A"}, -1, 0, out)
	if !errors.Is(err, context.Canceled) || n != 0 {
		t.Errorf("n=%d err=%v", n, err)
	}
}
