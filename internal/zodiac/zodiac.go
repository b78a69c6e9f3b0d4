// Package zodiac derives horoscope and Chinese zodiac signs from a birthday.
//
// Both derivations are pure functions over calendar components, so they live
// in their own leaf package with no dependencies — easy to test exhaustively
// and impossible to entangle with storage or HTTP concerns.
package zodiac

// sign is one western zodiac sign with its date range.
// Ranges are inclusive on both ends.
type sign struct {
	name       string
	startMonth int
	startDay   int
	endMonth   int
	endDay     int
}

// signs covers the year starting after Capricorn's January half.
// Capricorn itself wraps the year boundary (Dec 22 – Jan 19) and is handled
// as the fallthrough case in Horoscope.
var signs = []sign{
	{"Aquarius", 1, 20, 2, 18},
	{"Pisces", 2, 19, 3, 20},
	{"Aries", 3, 21, 4, 19},
	{"Taurus", 4, 20, 5, 20},
	{"Gemini", 5, 21, 6, 20},
	{"Cancer", 6, 21, 7, 22},
	{"Leo", 7, 23, 8, 22},
	{"Virgo", 8, 23, 9, 22},
	{"Libra", 9, 23, 10, 22},
	{"Scorpio", 10, 23, 11, 21},
	{"Sagittarius", 11, 22, 12, 21},
}

// chineseCycle is the 12-year cycle anchored so that 1900 is Monkey:
// index = (year - 1900) mod 12.
var chineseCycle = [12]string{
	"Monkey",
	"Rooster",
	"Dog",
	"Pig",
	"Rat",
	"Ox",
	"Tiger",
	"Rabbit",
	"Dragon",
	"Snake",
	"Horse",
	"Goat",
}

// Horoscope returns the western zodiac sign for the given month and day.
// Any (month, day) not covered by the eleven in-year ranges falls into
// Capricorn's Dec 22 – Jan 19 wrap-around window.
func Horoscope(month, day int) string {
	for _, s := range signs {
		if (month == s.startMonth && day >= s.startDay) ||
			(month == s.endMonth && day <= s.endDay) {
			return s.name
		}
	}
	return "Capricorn"
}

// ChineseZodiac returns the Chinese zodiac animal for the given year.
func ChineseZodiac(year int) string {
	idx := (year - 1900) % 12
	if idx < 0 {
		idx += 12
	}
	return chineseCycle[idx]
}
