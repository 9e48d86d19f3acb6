package optionchain

import (
	"reflect"
	"testing"

	"option-radar/internal/errors"
	"option-radar/internal/models"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func sampleRows() []models.ChainRow {
	return []models.ChainRow{
		{
			StrikePrice:            18000,
			ExpiryDate:             "27-Jul-2023",
			CEOpenInterest:         i64(1000),
			CEChangeInOpenInterest: i64(50),
			CELastPrice:            f64(3),
			CEUnderlyingValue:      f64(18010),
			PEOpenInterest:         i64(1200),
		},
		{
			StrikePrice:            18050,
			ExpiryDate:             "27-Jul-2023",
			CEOpenInterest:         i64(800),
			CEChangeInOpenInterest: i64(-20),
			CELastPrice:            f64(-1),
			CEUnderlyingValue:      f64(18010),
			PEOpenInterest:         i64(600),
		},
	}
}

func TestEndToEndExample(t *testing.T) {
	rows := sampleRows()

	atm, spot, err := LocateATM(rows)
	if err != nil {
		t.Fatalf("LocateATM returned error: %v", err)
	}
	if spot != 18010 {
		t.Errorf("spot = %v, want 18010", spot)
	}
	if atm != 18000 {
		t.Errorf("atm = %d, want 18000", atm)
	}

	tagged := Classify(FilterWindow(rows, atm, 5, "27-Jul-2023", 50))
	if len(tagged) != 2 {
		t.Fatalf("expected 2 rows in window, got %d", len(tagged))
	}
	if tagged[0].Signal != models.SignalLongBuildup {
		t.Errorf("row 1 signal = %s, want LongBuildup", tagged[0].Signal)
	}
	if tagged[1].Signal != models.SignalLongUnwinding {
		t.Errorf("row 2 signal = %s, want LongUnwinding", tagged[1].Signal)
	}

	pcr := Aggregate(tagged)
	if pcr.Ratio != 1.0 {
		t.Errorf("ratio = %v, want 1.0", pcr.Ratio)
	}
	if pcr.TotalCallOI != 1800 || pcr.TotalPutOI != 1800 {
		t.Errorf("totals = %d/%d, want 1800/1800", pcr.TotalCallOI, pcr.TotalPutOI)
	}
}

func TestNormalizeFlattensSides(t *testing.T) {
	snap := &models.OptionChainSnapshot{
		ExpiryDates: []string{"27-Jul-2023", "03-Aug-2023"},
		Records: []models.ChainRecord{
			{
				StrikePrice: 19500,
				ExpiryDate:  "27-Jul-2023",
				CE: &models.SideData{
					OpenInterest:         f64(1234),
					ChangeInOpenInterest: f64(-12),
					LastPrice:            f64(101.5),
					UnderlyingValue:      f64(19480.25),
				},
			},
			{
				StrikePrice: 16000,
				ExpiryDate:  "27-Jul-2023",
				PE:          &models.SideData{OpenInterest: f64(77)},
			},
		},
	}

	rows, expiries := Normalize(snap)
	if !reflect.DeepEqual(expiries, snap.ExpiryDates) {
		t.Errorf("expiries = %v, want %v", expiries, snap.ExpiryDates)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := FieldMap(rows[0])
	if first["CE_openInterest"] != int64(1234) {
		t.Errorf("CE_openInterest = %v, want 1234", first["CE_openInterest"])
	}
	if first["CE_changeinOpenInterest"] != int64(-12) {
		t.Errorf("CE_changeinOpenInterest = %v, want -12", first["CE_changeinOpenInterest"])
	}
	if _, ok := first["PE_openInterest"]; ok {
		t.Error("PE_openInterest should be absent for a call-only record")
	}

	second := FieldMap(rows[1])
	if _, ok := second["CE_lastPrice"]; ok {
		t.Error("CE_lastPrice should be absent for a put-only record")
	}
	if rows[1].CEOpenInterest != nil {
		t.Error("absent call OI must stay nil, not zero")
	}
	if second["PE_openInterest"] != int64(77) {
		t.Errorf("PE_openInterest = %v, want 77", second["PE_openInterest"])
	}
}

func TestNormalizeKeepsFeedOrder(t *testing.T) {
	snap := &models.OptionChainSnapshot{
		Records: []models.ChainRecord{
			{StrikePrice: 300, ExpiryDate: "b"},
			{StrikePrice: 100, ExpiryDate: "a"},
			{StrikePrice: 300, ExpiryDate: "b"},
		},
	}
	rows, _ := Normalize(snap)
	got := []float64{rows[0].StrikePrice, rows[1].StrikePrice, rows[2].StrikePrice}
	if !reflect.DeepEqual(got, []float64{300, 100, 300}) {
		t.Errorf("row order = %v, want feed order", got)
	}
}

func TestNormalizeEmptyRecords(t *testing.T) {
	tests := []struct {
		name     string
		expiries []string
	}{
		{"nil expiries", nil},
		{"empty expiries", []string{}},
		{"published expiries", []string{"27-Jul-2023", "03-Aug-2023"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, expiries := Normalize(&models.OptionChainSnapshot{ExpiryDates: tt.expiries})
			if len(rows) != 0 {
				t.Errorf("expected no rows, got %d", len(rows))
			}
			if !reflect.DeepEqual(expiries, tt.expiries) {
				t.Errorf("expiries = %#v, want %#v", expiries, tt.expiries)
			}
		})
	}

	rows, expiries := Normalize(nil)
	if rows != nil || expiries != nil {
		t.Error("nil snapshot should yield nil rows and expiries")
	}
}

func TestLocateATMNoUnderlying(t *testing.T) {
	rows := []models.ChainRow{
		{StrikePrice: 18000, PEOpenInterest: i64(10)},
		{StrikePrice: 18050, CEOpenInterest: i64(10)},
	}
	_, _, err := LocateATM(rows)
	if !errors.Is(err, errors.ErrNoUnderlyingData) {
		t.Fatalf("expected ErrNoUnderlyingData, got %v", err)
	}
	if errors.Kind(err) != errors.KindNoUnderlyingData {
		t.Errorf("Kind = %s, want %s", errors.Kind(err), errors.KindNoUnderlyingData)
	}

	if _, _, err := LocateATM(nil); !errors.Is(err, errors.ErrNoUnderlyingData) {
		t.Errorf("expected ErrNoUnderlyingData on empty input, got %v", err)
	}
}

func TestLocateATMTieKeepsFirst(t *testing.T) {
	rows := []models.ChainRow{
		{StrikePrice: 18050, CELastPrice: f64(10), CEUnderlyingValue: f64(18025)},
		{StrikePrice: 18000, CELastPrice: f64(12), CEUnderlyingValue: f64(18025)},
	}
	atm, _, err := LocateATM(rows)
	if err != nil {
		t.Fatal(err)
	}
	if atm != 18050 {
		t.Errorf("atm = %d, want first of the tied strikes 18050", atm)
	}
}

func TestLocateATMSpotFromFirstPricedRow(t *testing.T) {
	rows := []models.ChainRow{
		{StrikePrice: 17000, CEUnderlyingValue: f64(99999)},
		{StrikePrice: 17500, CELastPrice: f64(5), CEUnderlyingValue: f64(17490)},
		{StrikePrice: 18000, CELastPrice: f64(1), CEUnderlyingValue: f64(18000)},
	}
	atm, spot, err := LocateATM(rows)
	if err != nil {
		t.Fatal(err)
	}
	if spot != 17490 {
		t.Errorf("spot = %v, want 17490 from the first priced call row", spot)
	}
	if atm != 17500 {
		t.Errorf("atm = %d, want 17500", atm)
	}
}

func TestLocateATMRoundsStrike(t *testing.T) {
	rows := []models.ChainRow{
		{StrikePrice: 99.6, CELastPrice: f64(1), CEUnderlyingValue: f64(100)},
	}
	atm, _, err := LocateATM(rows)
	if err != nil {
		t.Fatal(err)
	}
	if atm != 100 {
		t.Errorf("atm = %d, want 100", atm)
	}
	if !IsATM(rows[0].StrikePrice, atm) {
		t.Errorf("strike %v should be recognised as ATM %d", rows[0].StrikePrice, atm)
	}
	if IsATM(99.4, atm) || IsATM(100.5, atm) {
		t.Error("strikes rounding elsewhere must not match ATM 100")
	}
}

func TestFilterWindow(t *testing.T) {
	var rows []models.ChainRow
	for _, exp := range []string{"A", "B"} {
		for s := 17700.0; s <= 18300; s += 50 {
			rows = append(rows, models.ChainRow{StrikePrice: s, ExpiryDate: exp})
		}
	}

	got := FilterWindow(rows, 18000, 2, "A", 50)
	var strikes []float64
	for _, r := range got {
		if r.ExpiryDate != "A" {
			t.Errorf("row with expiry %q leaked through", r.ExpiryDate)
		}
		strikes = append(strikes, r.StrikePrice)
	}
	want := []float64{17900, 17950, 18000, 18050, 18100}
	if !reflect.DeepEqual(strikes, want) {
		t.Errorf("strikes = %v, want %v (inclusive bounds)", strikes, want)
	}

	if out := FilterWindow(rows, 18000, 2, "27-JUL-2023", 50); len(out) != 0 {
		t.Errorf("expiry match must be exact, got %d rows", len(out))
	}

	wide := FilterWindow(rows, 18000, 1, "B", 100)
	if len(wide) != 5 {
		t.Errorf("step 100 half width 1 should keep 5 strikes, got %d", len(wide))
	}
}

func TestClampHalfWidth(t *testing.T) {
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 5: 5, 20: 20, 21: 20, 100: 20}
	for in, want := range cases {
		if got := ClampHalfWidth(in); got != want {
			t.Errorf("ClampHalfWidth(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestClassifySignal(t *testing.T) {
	tests := []struct {
		name  string
		oi    *int64
		price *float64
		want  models.SignalTag
	}{
		{"long buildup", i64(120), f64(4.5), models.SignalLongBuildup},
		{"short buildup", i64(120), f64(-4.5), models.SignalShortBuildup},
		{"short covering", i64(-50), f64(2.0), models.SignalShortCovering},
		{"long unwinding", i64(-50), f64(-2.0), models.SignalLongUnwinding},
		{"zero oi change", i64(0), f64(5.0), models.SignalNone},
		{"zero price", i64(10), f64(0), models.SignalNone},
		{"price absent", i64(30), nil, models.SignalNone},
		{"oi change absent", nil, f64(12), models.SignalNone},
		{"no call data", nil, nil, models.SignalNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := models.ChainRow{CEChangeInOpenInterest: tt.oi, CELastPrice: tt.price}
			if got := ClassifySignal(row); got != tt.want {
				t.Errorf("ClassifySignal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyDoesNotMutateInput(t *testing.T) {
	rows := sampleRows()
	before := make([]models.ChainRow, len(rows))
	copy(before, rows)

	out := Classify(rows)
	if !reflect.DeepEqual(rows, before) {
		t.Error("Classify mutated its input")
	}
	if len(out) != len(rows) {
		t.Errorf("Classify returned %d rows, want %d", len(out), len(rows))
	}
}

func TestCountSignals(t *testing.T) {
	counts := CountSignals(Classify(sampleRows()))
	if counts[models.SignalLongBuildup] != 1 || counts[models.SignalLongUnwinding] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
	if len(counts) != len(models.AllSignalTags) {
		t.Errorf("expected every tag to be present, got %d keys", len(counts))
	}
}

func TestAggregate(t *testing.T) {
	if got := Aggregate(nil); got.Ratio != 0 || got.TotalCallOI != 0 || got.TotalPutOI != 0 {
		t.Errorf("Aggregate(nil) = %+v, want zero value", got)
	}

	putOnly := []models.SignalRow{{ChainRow: models.ChainRow{PEOpenInterest: i64(500)}}}
	if got := Aggregate(putOnly); got.Ratio != 0 || got.TotalPutOI != 500 {
		t.Errorf("zero call OI should give ratio 0, got %+v", got)
	}

	mixed := []models.SignalRow{
		{ChainRow: models.ChainRow{CEOpenInterest: i64(400), PEOpenInterest: i64(100)}},
		{ChainRow: models.ChainRow{CEOpenInterest: i64(100)}},
	}
	if got := Aggregate(mixed); got.Ratio != 0.2 {
		t.Errorf("ratio = %v, want 0.2", got.Ratio)
	}
}

func TestOISeries(t *testing.T) {
	series := OISeries(Classify(sampleRows()))
	want := []models.OIPoint{
		{Strike: 18000, CallOI: 1000, PutOI: 1200},
		{Strike: 18050, CallOI: 800, PutOI: 600},
	}
	if !reflect.DeepEqual(series, want) {
		t.Errorf("series = %+v, want %+v", series, want)
	}
}
