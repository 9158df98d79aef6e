package sheet

import (
	"github.com/sells-group/postal-enrich/internal/model"
)

// Explode turns each output row into one table row per email, or a single
// row with an empty email when it has none.
func Explode(rows []model.OutputRow) []model.TableRow {
	out := make([]model.TableRow, 0, len(rows))
	for _, r := range rows {
		base := model.TableRow{
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Street:    r.Street,
			City:      r.City,
			District:  r.District,
			ZIP:       r.ZIP,
			Status:    r.Status,
		}
		if len(r.Emails) == 0 {
			out = append(out, base)
			continue
		}
		for _, email := range r.Emails {
			row := base
			row.Email = email
			out = append(out, row)
		}
	}
	return out
}

// BlankDuplicates groups rows by identity (every column but EMAIL) and
// clears the person and location columns of every row after the first in
// its group. EMAIL and STATUS are kept. The input is not modified.
func BlankDuplicates(rows []model.TableRow) []model.TableRow {
	out := make([]model.TableRow, len(rows))
	seen := make(map[model.IdentityKey]struct{}, len(rows))
	for i, r := range rows {
		key := r.Identity()
		if _, dup := seen[key]; dup {
			r.FirstName, r.LastName, r.Street = "", "", ""
			r.City, r.District, r.ZIP = "", "", ""
		} else {
			seen[key] = struct{}{}
		}
		out[i] = r
	}
	return out
}

// MergeRows appends the exploded rows to existing and blanks duplicates.
// Existing rows are never dropped or reordered.
func MergeRows(existing []model.TableRow, rows []model.OutputRow) []model.TableRow {
	all := make([]model.TableRow, 0, len(existing)+len(rows))
	all = append(all, existing...)
	all = append(all, Explode(rows)...)
	return BlankDuplicates(all)
}
