package rule

// gdpTable 欧洲国家 GDP 常量（十亿美元，2023 年估算）
// 同一国家的别名（Czechia / Czech Republic 等）取相同数值
var gdpTable = map[string]float64{
	"Germany":                4259.9,
	"United Kingdom":         3131.0,
	"France":                 2937.5,
	"Italy":                  2110.0,
	"Spain":                  1397.5,
	"Netherlands":            909.9,
	"Switzerland":            807.7,
	"Belgium":                529.6,
	"Austria":                479.8,
	"Poland":                 679.4,
	"Sweden":                 541.2,
	"Norway":                 482.2,
	"Denmark":                390.7,
	"Finland":                297.3,
	"Portugal":               249.9,
	"Czechia":                290.9,
	"Czech Republic":         290.9,
	"Romania":                284.1,
	"Hungary":                181.8,
	"Slovakia":               115.5,
	"Slovenia":               61.7,
	"Luxembourg":             86.3,
	"Croatia":                70.0,
	"Bulgaria":               84.1,
	"Lithuania":              68.0,
	"Latvia":                 40.9,
	"Estonia":                38.1,
	"Cyprus":                 28.4,
	"Malta":                  17.3,
	"Serbia":                 63.1,
	"Bosnia and Herzegovina": 24.5,
	"North Macedonia":        13.8,
	"Macedonia":              13.8,
	"Montenegro":             6.2,
	"Albania":                18.3,
	"Moldova":                13.9,
	"Republic of Moldova":    13.9,
	"Ukraine":                170.1,
	"Belarus":                68.2,
	"Ireland":                498.6,
	"Greece":                 218.1,
	"Russia":                 2240.4,
}

// GDP 返回国家 GDP，不在表中的国家返回 (0, false)
func GDP(country string) (float64, bool) {
	v, ok := gdpTable[country]
	return v, ok
}

// Countries 返回所有已知国家
func Countries() []string {
	out := make([]string, 0, len(gdpTable))
	for name := range gdpTable {
		out = append(out, name)
	}
	return out
}
