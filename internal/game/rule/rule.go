package rule

import (
	"math"
)

// 要塞
const (
	FortUpgradeCost     = 50.0
	MaxFortLevel        = 100
	FortDefensePerLevel = 0.005
	MinSuccessChance    = 0.05
)

// 玩家
const (
	InitialPower        = 10
	PowerPerTick        = 1
	EconomyGrowthRate   = 0.02 // 每次经济增长占已占领 GDP 的比例
	StartingEconomyRate = 0.5  // 开局经济占所选国家 GDP 的比例
	UnknownCountryGDP   = 100.0
)

// AttackType 进攻类型
type AttackType struct {
	Name       string
	Cost       float64
	BaseChance float64
}

// AttackTypes 按索引选择的进攻类型
var AttackTypes = []AttackType{
	{Name: "Weak Attack", Cost: 5, BaseChance: 0.2},
	{Name: "Medium Attack", Cost: 20, BaseChance: 0.3},
	{Name: "Heavy Attack", Cost: 100, BaseChance: 0.5},
	{Name: "Massive Attack", Cost: 500, BaseChance: 0.8},
}

// LookupAttackType 按索引查找进攻类型
func LookupAttackType(index int) (AttackType, bool) {
	if index < 0 || index >= len(AttackTypes) {
		return AttackType{}, false
	}
	return AttackTypes[index], true
}

// Palette 玩家颜色，房间内唯一
var Palette = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f39c12", "#9b59b6",
	"#1abc9c", "#e67e22", "#34495e", "#e91e63", "#795548",
}

// FinalChance 计算要塞削减后的成功率，下限为 MinSuccessChance
func FinalChance(baseChance float64, fortLevel int) float64 {
	return math.Max(MinSuccessChance, baseChance-float64(fortLevel)*FortDefensePerLevel)
}

// InitialFortLevel 根据 GDP 计算初始要塞等级 floor(gdp/50/2)，限制在 [0, MaxFortLevel]
func InitialFortLevel(gdp float64) int {
	level := int(math.Floor(gdp / 50 / 2))
	return min(max(level, 0), MaxFortLevel)
}

// InitialFortLevels 所有已知国家的初始要塞等级
func InitialFortLevels() map[string]int {
	levels := make(map[string]int, len(gdpTable))
	for name, gdp := range gdpTable {
		levels[name] = InitialFortLevel(gdp)
	}
	return levels
}

// GDPOrDefault 国家 GDP，未知国家按 UnknownCountryGDP 计算
func GDPOrDefault(country string) float64 {
	if gdp, ok := GDP(country); ok {
		return gdp
	}
	return UnknownCountryGDP
}

// StartingEconomy 开局经济
func StartingEconomy(country string) float64 {
	return GDPOrDefault(country) * StartingEconomyRate
}

// EconomyGrowth 一次经济增长量，未知国家不计入
func EconomyGrowth(ownedCountries []string) float64 {
	var total float64
	for _, c := range ownedCountries {
		if gdp, ok := GDP(c); ok {
			total += gdp
		}
	}
	return total * EconomyGrowthRate
}
