package model_test

import (
	"math"
	"testing"

	"masstg-export/internal/model"
)

func TestDecodeReport_Current(t *testing.T) {
	b := []byte(`{"campaignId":12,"generatedAt":20,"createdAt":10,"senderId":"sender","kind":"template",
"deliveredCount":5,"readCount":3,"convertedEntities":[{"id":"a","convertedAt":11,"isInactive":true}],"recipientIds":["a","b"]}`)
	r, err := model.DecodeReport(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.CampaignID != 12 || r.Kind != model.KindTemplate || *r.ReadCount != 3 || r.ConvertedCount != nil {
		t.Fatalf("unexpected report: %+v", r)
	}
	if len(r.ConvertedEntities) != 1 || !r.ConvertedEntities[0].IsInactive {
		t.Fatalf("converted: %+v", r.ConvertedEntities)
	}
}

func TestDecodeReport_Legacy(t *testing.T) {
	b := []byte(`{"tgid":7,"generatedAt":20,"createdAt":10,"nation":"old_sender","type":"api","delivered":9,
"recruitCount":1,"recruits":[{"name":"x","timestamp":15,"cte":false}],"recipients":["x"]}`)
	r, err := model.DecodeReport(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.CampaignID != 7 || r.SenderID != "old_sender" || r.Kind != model.KindAPI || r.DeliveredCount != 9 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if r.ConvertedCount == nil || *r.ConvertedCount != 1 || r.ReadCount != nil {
		t.Fatalf("counts: %+v", r)
	}
	if len(r.ConvertedEntities) != 1 || r.ConvertedEntities[0].ID != "x" || r.ConvertedEntities[0].ConvertedAt != 15 {
		t.Fatalf("converted: %+v", r.ConvertedEntities)
	}
}

func TestDecodeReport_Rejects(t *testing.T) {
	for _, b := range []string{`[]`, `{"foo":1}`, `{"campaignId":1,"kind":"spam"}`, `{"tgid":1,"type":""}`} {
		if _, err := model.DecodeReport([]byte(b)); err == nil {
			t.Fatalf("expect error for %s", b)
		}
	}
}

func TestStats_Rates(t *testing.T) {
	var s model.Stats
	if s.ReadRate() != 0 || s.ReadToConvertRate() != 0 {
		t.Fatalf("zero totals should give zero rates")
	}
	s.Add(model.Stats{Delivered: 200, Read: 50, Converted: 5})
	if s.ReadRate() != 25 || s.ConvertRate() != 2.5 || math.Abs(s.ReadToConvertRate()-10) > 1e-9 {
		t.Fatalf("rates: %v %v %v", s.ReadRate(), s.ConvertRate(), s.ReadToConvertRate())
	}
}

func TestTimeRange_Include(t *testing.T) {
	var tr model.TimeRange
	tr.Include(100, 200)
	tr.Include(50, 150)
	tr.Include(120, 300)
	if tr.Start != 50 || tr.End != 300 {
		t.Fatalf("range = %+v", tr)
	}
}
