package statistics

import "lokalfakta/server/internal/models"

// Static reference tables keyed by municipality code. Income is the median
// annual earned income in SEK for residents aged 20-64, working age is the
// share of residents aged 20-64, businesses counts active workplaces and
// crime is reported offences per 100,000 residents.

var medianIncome = map[string]int{
	"0180": 386400, "1480": 352100, "1280": 305800, "0380": 350900,
	"0580": 352700, "1880": 337600, "1980": 345200, "1283": 326900,
	"0581": 322800, "0680": 339500, "2480": 336400, "1281": 338100,
	"1490": 331200, "0126": 339000, "0484": 311400, "0182": 424300,
	"2180": 330700, "1380": 329800, "0181": 299700, "2281": 336900,
	"1780": 333500, "0780": 337100, "0127": 298200, "1290": 318600,
	"2580": 359600, "0184": 401200, "0183": 364500, "0160": 437100,
	"0123": 355800, "0163": 414900, "2380": 334100, "1488": 314200,
	"2482": 344800, "0880": 334600, "2080": 340700, "1481": 380500,
	"1080": 334900, "0980": 313200,
}

var workingAgePercent = map[string]float64{
	"0180": 62.4, "1480": 61.3, "1280": 60.8, "0380": 58.9,
	"0580": 57.6, "1880": 57.2, "1980": 56.9, "1283": 56.4,
	"0581": 56.2, "0680": 55.8, "2480": 58.1, "1281": 60.2,
	"1490": 55.9, "0126": 57.9, "0484": 55.3, "0182": 56.6,
	"2180": 56.1, "1380": 55.2, "0181": 56.4, "2281": 55.7,
	"1780": 56.8, "0780": 57.4, "0127": 56.0, "1290": 54.9,
	"2580": 57.5, "0184": 63.1, "0183": 62.7, "0160": 53.8,
	"0123": 56.2, "0163": 55.4, "2380": 56.3, "1488": 55.9,
	"2482": 54.1, "0880": 55.7, "2080": 55.4, "1481": 57.0,
	"1080": 55.3, "0980": 53.2,
}

var totalBusinesses = map[string]int{
	"0180": 148200, "1480": 71400, "1280": 42100, "0380": 27300,
	"0580": 17900, "1880": 15800, "1980": 15300, "1283": 17600,
	"0581": 12600, "0680": 16100, "2480": 13700, "1281": 14300,
	"1490": 13900, "0126": 11200, "0484": 9100, "0182": 14800,
	"2180": 10300, "1380": 11900, "0181": 8000, "2281": 10100,
	"1780": 10600, "0780": 10400, "0127": 7300, "1290": 10700,
	"2580": 8600, "0184": 9700, "0183": 5200, "0160": 9600,
	"0123": 6500, "0163": 8000, "2380": 8700, "1488": 5300,
	"2482": 9300, "0880": 7700, "2080": 6800, "1481": 7200,
	"1080": 6200, "0980": 9600,
}

var crimeRate = map[string]int{
	"0180": 19400, "1480": 16200, "1280": 19100, "0380": 12900,
	"0580": 12100, "1880": 14300, "1980": 12800, "1283": 14100,
	"0581": 13300, "0680": 10900, "2480": 10200, "1281": 12600,
	"1490": 11700, "0126": 12400, "0484": 13900, "0182": 9300,
	"2180": 12500, "1380": 10800, "0181": 14600, "2281": 11400,
	"1780": 11100, "0780": 10600, "0127": 11900, "1290": 11300,
	"2580": 10100, "0184": 15200, "0183": 13700, "0160": 8100,
	"0123": 10400, "0163": 8700, "2380": 11200, "1488": 13100,
	"2482": 8400, "0880": 10900, "1481": 11600,
}

// MedianIncome returns the median income for a municipality code
func MedianIncome(code string) (int, bool) {
	v, ok := medianIncome[code]
	return v, ok
}

// WorkingAgePercent returns the working-age share for a municipality code
func WorkingAgePercent(code string) (float64, bool) {
	v, ok := workingAgePercent[code]
	return v, ok
}

// TotalBusinesses returns the number of workplaces for a municipality code
func TotalBusinesses(code string) (int, bool) {
	v, ok := totalBusinesses[code]
	return v, ok
}

// CrimeRate is a crime rate per 100,000 residents and whether it is the
// municipality's own figure or the national fallback
type CrimeRate struct {
	PerHundredThousand int
	NationalAverage    bool
}

// CrimeRateFor returns the municipality's crime rate, falling back to the
// national average when the table has no entry
func CrimeRateFor(code string) CrimeRate {
	if v, ok := crimeRate[code]; ok {
		return CrimeRate{PerHundredThousand: v}
	}
	return CrimeRate{PerHundredThousand: models.NationalCrimeRate, NationalAverage: true}
}
