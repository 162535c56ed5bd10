package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ludo-technologies/simrec/domain"
)

// ReportFormatterImpl implements domain.ReportFormatter
type ReportFormatterImpl struct {
	utils *FormatUtils
}

// NewReportFormatter creates a new report formatter
func NewReportFormatter() *ReportFormatterImpl {
	return &ReportFormatterImpl{utils: NewFormatUtils()}
}

// write dispatches on format. text renders the human-readable report; table
// returns the CSV header and rows.
func (f *ReportFormatterImpl) write(w io.Writer, format domain.OutputFormat, v any, text func() string, rows func() ([]string, [][]string)) error {
	switch format {
	case domain.OutputFormatText, "":
		if _, err := io.WriteString(w, text()); err != nil {
			return domain.NewOutputError("failed to write text report", err)
		}
		return nil
	case domain.OutputFormatJSON:
		return WriteJSON(w, v)
	case domain.OutputFormatYAML:
		return WriteYAML(w, v)
	case domain.OutputFormatCSV:
		header, records := rows()
		return WriteCSV(w, header, records)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteSimilar writes a similarity response
func (f *ReportFormatterImpl) WriteSimilar(resp *domain.SimilarResponse, format domain.OutputFormat, w io.Writer) error {
	return f.write(w, format, resp, func() string {
		var b strings.Builder
		b.WriteString(f.utils.FormatMainHeader("Similar entities to " + resp.Query))
		b.WriteString(f.utils.FormatLabel("Score mode", resp.ScoreMode))
		b.WriteString(f.utils.FormatLabel("Candidates", f.utils.FormatCount(resp.Candidates)))
		b.WriteString(f.utils.FormatLabel("Results", len(resp.Results)))
		b.WriteString("\n")
		if len(resp.Results) == 0 {
			b.WriteString("No similar entities found.\n")
			return b.String()
		}

		showExact := resp.Results[0].Exact != nil
		header := []interface{}{"#", "Entity", "Similarity", "Shared bands"}
		if showExact {
			header = append(header, "Exact Jaccard")
		}
		tbl := f.utils.NewTable(header...)
		for i, r := range resp.Results {
			row := table.Row{i + 1, r.EntityID, f.utils.FormatScore(r.Similarity), r.SharedBands}
			if showExact {
				exact := "-"
				if r.Exact != nil {
					exact = f.utils.FormatScore(*r.Exact)
				}
				row = append(row, exact)
			}
			tbl.AppendRow(row)
		}
		b.WriteString(tbl.Render() + "\n")
		return b.String()
	}, func() ([]string, [][]string) {
		records := make([][]string, len(resp.Results))
		for i, r := range resp.Results {
			exact := ""
			if r.Exact != nil {
				exact = ftoa(*r.Exact)
			}
			records[i] = []string{strconv.Itoa(i + 1), r.EntityID, ftoa(r.Similarity), strconv.Itoa(r.SharedBands), exact}
		}
		return []string{"rank", "entity_id", "similarity", "shared_bands", "exact_jaccard"}, records
	})
}

// WriteCandidates writes a candidates response
func (f *ReportFormatterImpl) WriteCandidates(resp *domain.CandidatesResponse, format domain.OutputFormat, w io.Writer) error {
	return f.write(w, format, resp, func() string {
		var b strings.Builder
		b.WriteString(f.utils.FormatMainHeader("LSH candidates for " + resp.Query))
		b.WriteString(f.utils.FormatLabel("Min band matches", resp.MinBandMatches))
		b.WriteString(f.utils.FormatLabel("Candidates", f.utils.FormatCount(len(resp.Candidates))))
		b.WriteString("\n")
		if len(resp.Candidates) == 0 {
			b.WriteString("No entity shares a bucket with the query.\n")
			return b.String()
		}
		tbl := f.utils.NewTable("Entity", "Shared bands")
		for _, c := range resp.Candidates {
			tbl.AppendRow(table.Row{c.EntityID, c.SharedBands})
		}
		b.WriteString(tbl.Render() + "\n")
		return b.String()
	}, func() ([]string, [][]string) {
		records := make([][]string, len(resp.Candidates))
		for i, c := range resp.Candidates {
			records[i] = []string{c.EntityID, strconv.Itoa(c.SharedBands)}
		}
		return []string{"entity_id", "shared_bands"}, records
	})
}

// WriteItems writes an item recommendation response
func (f *ReportFormatterImpl) WriteItems(resp *domain.ItemsResponse, format domain.OutputFormat, w io.Writer) error {
	return f.write(w, format, resp, func() string {
		var b strings.Builder
		b.WriteString(f.utils.FormatMainHeader("Recommended items for " + resp.Query))
		b.WriteString(f.utils.FormatLabel("Weighting", resp.Weighting))
		b.WriteString(f.utils.FormatLabel("Neighbours consulted", len(resp.Neighbours)))
		b.WriteString("\n")

		if len(resp.Neighbours) > 0 {
			b.WriteString(f.utils.FormatSectionHeader("Neighbours"))
			tbl := f.utils.NewTable("Entity", "Similarity")
			for _, n := range resp.Neighbours {
				tbl.AppendRow(table.Row{n.EntityID, f.utils.FormatScore(n.Similarity)})
			}
			b.WriteString(tbl.Render() + "\n\n")
		}

		b.WriteString(f.utils.FormatSectionHeader("Items"))
		if len(resp.Items) == 0 {
			b.WriteString("No items to recommend.\n")
			return b.String()
		}
		tbl := f.utils.NewTable("#", "Item", "Score", "Supporters")
		for i, it := range resp.Items {
			tbl.AppendRow(table.Row{i + 1, it.ItemID, f.utils.FormatScore(it.Score), it.Supporters})
		}
		b.WriteString(tbl.Render() + "\n")
		return b.String()
	}, func() ([]string, [][]string) {
		records := make([][]string, len(resp.Items))
		for i, it := range resp.Items {
			records[i] = []string{strconv.Itoa(i + 1), it.ItemID, ftoa(it.Score), strconv.Itoa(it.Supporters)}
		}
		return []string{"rank", "item_id", "score", "supporters"}, records
	})
}

// WriteCompare writes a pairwise comparison
func (f *ReportFormatterImpl) WriteCompare(resp *domain.CompareResponse, format domain.OutputFormat, w io.Writer) error {
	return f.write(w, format, resp, func() string {
		var b strings.Builder
		b.WriteString(f.utils.FormatMainHeader(fmt.Sprintf("%s vs %s", resp.Left, resp.Right)))
		b.WriteString(f.utils.FormatLabel("Estimated similarity", f.utils.FormatScore(resp.Estimated)))
		b.WriteString(f.utils.FormatLabel("Exact Jaccard", f.utils.FormatScore(resp.Exact)))
		b.WriteString(f.utils.FormatLabel("Shared bands", resp.SharedBands))
		b.WriteString(f.utils.FormatLabel("Candidate probability", f.utils.FormatPercentage(resp.CandidateProbability)))
		return b.String()
	}, func() ([]string, [][]string) {
		return []string{"left", "right", "estimated", "exact", "shared_bands", "candidate_probability"},
			[][]string{{resp.Left, resp.Right, ftoa(resp.Estimated), ftoa(resp.Exact),
				strconv.Itoa(resp.SharedBands), ftoa(resp.CandidateProbability)}}
	})
}

func (f *ReportFormatterImpl) corpusSection(b *strings.Builder, c *domain.CorpusSummary) {
	if c == nil {
		return
	}
	b.WriteString(f.utils.FormatSectionHeader("Corpus"))
	b.WriteString(f.utils.FormatLabel("ID", c.ID))
	b.WriteString(f.utils.FormatLabel("Built", f.utils.FormatTime(c.BuiltAt)))
	b.WriteString(f.utils.FormatLabel("Source", c.Source))
	b.WriteString(f.utils.FormatLabel("Entities", f.utils.FormatCount(c.Entities)))
	if c.Ratings > 0 {
		b.WriteString(f.utils.FormatLabel("Ratings read", f.utils.FormatCount(c.Ratings)))
	}
	b.WriteString(f.utils.FormatLabel("Hash functions", c.NumHashes))
	b.WriteString(f.utils.FormatLabel("Bands x rows", fmt.Sprintf("%d x %d", c.Bands, c.BandWidth)))
	b.WriteString(f.utils.FormatLabel("Threshold", f.utils.FormatScore(c.Threshold)))
	b.WriteString(f.utils.FormatLabel("Load time", f.utils.FormatDuration(c.DurationMs)))
	b.WriteString("\n")
	if len(c.Skipped) > 0 {
		warnings := make([]string, len(c.Skipped))
		for i, id := range c.Skipped {
			warnings[i] = "entity " + id + " has no items at or above min_rating"
		}
		b.WriteString(f.utils.FormatWarningsSection(warnings))
	}
}

// WriteStats writes corpus and index statistics
func (f *ReportFormatterImpl) WriteStats(resp *domain.StatsResponse, format domain.OutputFormat, w io.Writer) error {
	return f.write(w, format, resp, func() string {
		var b strings.Builder
		b.WriteString(f.utils.FormatMainHeader("simrec index statistics"))
		f.corpusSection(&b, resp.Corpus)

		ix := resp.Index
		b.WriteString(f.utils.FormatSectionHeader("Buckets"))
		b.WriteString(f.utils.FormatLabel("Non-empty buckets", f.utils.FormatCount(ix.Buckets)))
		b.WriteString(f.utils.FormatLabel("Singletons", f.utils.FormatCount(ix.Singletons)))
		b.WriteString(f.utils.FormatLabel("Size min/max", fmt.Sprintf("%d / %d", ix.MinBucketSize, ix.MaxBucketSize)))
		b.WriteString(f.utils.FormatLabel("Size avg/median", fmt.Sprintf("%.2f / %.1f", ix.AvgBucketSize, ix.MedianBucketSize)))
		b.WriteString("\n")

		b.WriteString(f.utils.FormatSectionHeader("Banding error"))
		rates := f.utils.NewTable("Similarity", "False positive", "False negative")
		for _, r := range resp.Rates {
			rates.AppendRow(table.Row{fmt.Sprintf("%.1f", r.Similarity),
				f.utils.FormatPercentage(r.FalsePositive), f.utils.FormatPercentage(r.FalseNegative)})
		}
		b.WriteString(rates.Render() + "\n")

		if len(resp.LargestBuckets) > 0 {
			b.WriteString("\n" + f.utils.FormatSectionHeader("Largest buckets"))
			tbl := f.utils.NewTable("Band", "Hash", "Size", "Entities")
			for _, bk := range resp.LargestBuckets {
				tbl.AppendRow(table.Row{bk.Band, bk.Hash, bk.Size, abbreviate(bk.EntityIDs, 8)})
			}
			b.WriteString(tbl.Render() + "\n")
		}
		return b.String()
	}, func() ([]string, [][]string) {
		records := make([][]string, len(resp.LargestBuckets))
		for i, bk := range resp.LargestBuckets {
			records[i] = []string{strconv.Itoa(bk.Band), bk.Hash, strconv.Itoa(bk.Size), strings.Join(bk.EntityIDs, " ")}
		}
		return []string{"band", "hash", "size", "entity_ids"}, records
	})
}

func abbreviate(ids []string, n int) string {
	if len(ids) <= n {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s, ... (+%d)", strings.Join(ids[:n], ", "), len(ids)-n)
}

// WriteEvaluation writes an estimation accuracy report
func (f *ReportFormatterImpl) WriteEvaluation(resp *domain.EvaluateResponse, format domain.OutputFormat, w io.Writer) error {
	return f.write(w, format, resp, func() string {
		var b strings.Builder
		b.WriteString(f.utils.FormatMainHeader("Estimation accuracy"))
		b.WriteString(f.utils.FormatLabel("Entities sampled", f.utils.FormatCount(resp.Sampled)))
		b.WriteString(f.utils.FormatLabel("Pairs compared", f.utils.FormatCount(resp.PairsCompared)))
		b.WriteString(f.utils.FormatLabel("Mean loss (all)", f.utils.FormatScore(resp.OverallMeanLoss)))
		b.WriteString(f.utils.FormatLabel("Correlation", f.utils.FormatScore(resp.Correlation)))
		b.WriteString(f.utils.FormatLabel(fmt.Sprintf("Pairs above %.2f", resp.Threshold), f.utils.FormatCount(resp.PairsAbove)))
		if resp.PairsAbove > 0 {
			b.WriteString(f.utils.FormatLabel("Mean loss", f.utils.FormatScore(resp.MeanLoss)))
			b.WriteString(f.utils.FormatLabel("Std dev loss", f.utils.FormatScore(resp.StdDevLoss)))
			b.WriteString(f.utils.FormatLabel("Max loss", f.utils.FormatScore(resp.MaxLoss)))
		}
		b.WriteString("\n")
		if len(resp.TopPairs) > 0 {
			tbl := f.utils.NewTable("Left", "Right", "Estimated", "Exact", "Loss")
			for _, p := range resp.TopPairs {
				tbl.AppendRow(table.Row{p.Left, p.Right, f.utils.FormatScore(p.Estimated),
					f.utils.FormatScore(p.Exact), f.utils.FormatScore(p.Loss)})
			}
			b.WriteString(tbl.Render() + "\n")
		}
		return b.String()
	}, func() ([]string, [][]string) {
		records := make([][]string, len(resp.TopPairs))
		for i, p := range resp.TopPairs {
			records[i] = []string{p.Left, p.Right, ftoa(p.Estimated), ftoa(p.Exact), ftoa(p.Loss)}
		}
		return []string{"left", "right", "estimated", "exact", "loss"}, records
	})
}

// WriteCurve writes the candidate probability table, one row per band width
func (f *ReportFormatterImpl) WriteCurve(resp *domain.CurveResponse, format domain.OutputFormat, w io.Writer) error {
	return f.write(w, format, resp, func() string {
		var b strings.Builder
		b.WriteString(f.utils.FormatMainHeader(fmt.Sprintf("Candidate probability, n = %d", resp.NumHashes)))
		header := []interface{}{"r", "b", "Threshold"}
		for _, s := range resp.Similarities {
			header = append(header, fmt.Sprintf("s=%.2f", s))
		}
		tbl := f.utils.NewTable(header...)
		for _, row := range resp.Rows {
			r := table.Row{row.BandWidth, row.Bands, f.utils.FormatScore(row.Threshold)}
			for _, p := range row.Probabilities {
				r = append(r, fmt.Sprintf("%.3f", p))
			}
			tbl.AppendRow(r)
		}
		b.WriteString(tbl.Render() + "\n")
		return b.String()
	}, func() ([]string, [][]string) {
		header := []string{"band_width", "bands", "threshold"}
		for _, s := range resp.Similarities {
			header = append(header, "s_"+ftoa(s))
		}
		records := make([][]string, len(resp.Rows))
		for i, row := range resp.Rows {
			rec := []string{strconv.Itoa(row.BandWidth), strconv.Itoa(row.Bands), ftoa(row.Threshold)}
			for _, p := range row.Probabilities {
				rec = append(rec, ftoa(p))
			}
			records[i] = rec
		}
		return header, records
	})
}

// WriteSnapshot reports a written snapshot
func (f *ReportFormatterImpl) WriteSnapshot(resp *domain.SnapshotResponse, format domain.OutputFormat, w io.Writer) error {
	return f.write(w, format, resp, func() string {
		var b strings.Builder
		b.WriteString(f.utils.FormatMainHeader("Snapshot written"))
		b.WriteString(f.utils.FormatLabel("Path", resp.Path))
		b.WriteString(f.utils.FormatLabel("Size", f.utils.FormatBytes(resp.Bytes)))
		b.WriteString("\n")
		f.corpusSection(&b, resp.Corpus)
		return b.String()
	}, func() ([]string, [][]string) {
		rec := []string{resp.Path, strconv.FormatInt(resp.Bytes, 10), "", "0"}
		if resp.Corpus != nil {
			rec[2] = resp.Corpus.ID
			rec[3] = strconv.Itoa(resp.Corpus.Entities)
		}
		return []string{"path", "bytes", "corpus_id", "entities"}, [][]string{rec}
	})
}
