package hebrew

import "strings"

// Significance links a holiday keyword to its scripture reference
type Significance struct {
	Keyword   string
	Reference string
	Text      string
}

// significanceTable is scanned in order; the first keyword found wins
var significanceTable = []Significance{
	{"Rosh Hashana", "Leviticus 23:23-25", "Jewish New Year, Day of Judgment and Remembrance"},
	{"Yom Kippur", "Leviticus 16, Hebrews 9:6-15", "Day of Atonement, prefigures Christ's sacrifice"},
	{"Sukkot", "Leviticus 23:33-43, John 7:2", "Feast of Booths, Jesus taught during this feast"},
	{"Chanukah", "1 Maccabees 4:52-59, John 10:22-23", "Festival of Dedication, Jesus walked in Solomon's Colonnade"},
	{"Purim", "Book of Esther", "Celebration of deliverance from Haman's plot"},
	{"Pesach", "Exodus 12, Luke 22:7-20", "Memorial of exodus from Egypt, Jesus' Last Supper was a Passover meal"},
	{"Shavuot", "Leviticus 23:15-22, Acts 2:1-31", "Feast of Weeks, the Holy Spirit was poured out on Pentecost"},
	{"Tu BiShvat", "Deuteronomy 8:8", "New Year of Trees, celebrating God's creation"},
	{"Tisha B'Av", "Lamentations", "Day of mourning for the destruction of the Temples"},
	{"Rosh Chodesh", "Numbers 10:10, Psalm 81:3", "New Moon, biblical monthly celebration"},
}

// apostrophes are dropped before matching so "Tish'a B'Av" matches "Tisha B'Av"
var apostrophes = strings.NewReplacer("'", "", "’", "", "׳", "")

func normalizeTitle(s string) string {
	return strings.ToLower(apostrophes.Replace(s))
}

// LookupSignificance returns the first table entry whose keyword occurs in description
func LookupSignificance(description string) (Significance, bool) {
	desc := normalizeTitle(description)
	if desc == "" {
		return Significance{}, false
	}
	for _, entry := range significanceTable {
		if strings.Contains(desc, normalizeTitle(entry.Keyword)) {
			return entry, true
		}
	}
	return Significance{}, false
}

// SignificanceTable returns a copy of the keyword table in lookup order
func SignificanceTable() []Significance {
	out := make([]Significance, len(significanceTable))
	copy(out, significanceTable)
	return out
}
