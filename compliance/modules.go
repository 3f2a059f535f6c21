package compliance

import (
	"regexp"
	"strings"
)

// ModuleIcon 描述一个合规标识。Present 由证书/注册信息即时推导，从不持久化。
type ModuleIcon struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Label     string `json:"label"`
	Mandatory bool   `json:"mandatory"`
	Present   bool   `json:"present"`
}

// 合规模块 ID。
const (
	ModuleCE                 = "ce"
	ModuleWEEE               = "weee"
	ModuleRoHS               = "rohs"
	ModuleEMC                = "emc"
	ModuleRED                = "red"
	ModuleEnergyLabel        = "energy-label"
	ModuleREACH              = "reach"
	ModuleUKCA               = "ukca"
	ModuleTextileComposition = "textile-composition"
	ModuleOekoTex            = "oeko-tex"
	ModuleGOTS               = "gots"
	ModuleEN71               = "en71"
	ModuleAgeWarning         = "age-warning"
	ModuleFoodContact        = "food-contact"
)

// moduleDef 是单个模块的静态描述：证书名匹配规则与可替代证书的注册键。
type moduleDef struct {
	symbol          string
	label           string
	pattern         *regexp.Regexp
	registrationKey string
}

// 正则允许常见的标点/空格变体，例如 "CE-Kennzeichnung"、"CE Mark"、"C.E."。
var moduleDefs = map[string]moduleDef{
	ModuleCE: {
		symbol:  "CE",
		label:   "CE marking",
		pattern: regexp.MustCompile(`(?i)(^|[^a-z])c[\s.\-_]*e($|[^a-z])|konformit(ä|ae)tserkl(ä|ae)rung|declaration of conformity`),
	},
	ModuleWEEE: {
		symbol:          "WEEE",
		label:           "WEEE",
		pattern:         regexp.MustCompile(`(?i)w[\s.\-_]*e[\s.\-_]*e[\s.\-_]*e|elektrog|stiftung\s*ear|\bear\b`),
		registrationKey: "weeeRegistration",
	},
	ModuleRoHS: {
		symbol:  "RoHS",
		label:   "RoHS",
		pattern: regexp.MustCompile(`(?i)(^|[^a-z])r[\s.\-_]*o[\s.\-_]*h[\s.\-_]*s($|[^a-z])|2011/65`),
	},
	ModuleEMC: {
		symbol:  "EMC",
		label:   "EMC",
		pattern: regexp.MustCompile(`(?i)(^|[^a-z])e[\s.\-_]*m[\s.\-_]*[cv]($|[^a-z])|electromagnetic|elektromagnetisch|2014/30`),
	},
	ModuleRED: {
		symbol:  "RED",
		label:   "Radio Equipment",
		pattern: regexp.MustCompile(`(?i)^\s*r[\s.\-_]*e[\s.\-_]*d\s*$|(^|[^a-z])red[\s\-_]*(directive|richtlinie|konformit)|radio\s*equipment|funkanlagen|2014/53`),
	},
	ModuleEnergyLabel: {
		symbol:          "A-G",
		label:           "Energy label",
		pattern:         regexp.MustCompile(`(?i)energy[\s\-_]*label|energielabel|energieeffizienz|eprel|ecodesign|ökodesign`),
		registrationKey: "eprelRegistration",
	},
	ModuleREACH: {
		symbol:          "REACH",
		label:           "REACH",
		pattern:         regexp.MustCompile(`(?i)(^|[^a-z])r[\s.\-_]*e[\s.\-_]*a[\s.\-_]*c[\s.\-_]*h($|[^a-z])|1907/2006|svhc`),
		registrationKey: "reachRegistration",
	},
	ModuleUKCA: {
		symbol:          "UKCA",
		label:           "UKCA",
		pattern:         regexp.MustCompile(`(?i)u[\s.\-_]*k[\s.\-_]*c[\s.\-_]*a`),
		registrationKey: "ukcaRegistration",
	},
	ModuleTextileComposition: {
		symbol:  "%",
		label:   "Fibre composition",
		pattern: regexp.MustCompile(`(?i)textil[\s\-_]*(kennzeichnung|label)|fib(re|er)\s*composition|faserzusammensetzung|1007/2011`),
	},
	ModuleOekoTex: {
		symbol:  "OEKO-TEX",
		label:   "OEKO-TEX",
		pattern: regexp.MustCompile(`(?i)(o|ö|oe)[\s\-_]*ko[\s\-_]*tex|standard\s*100`),
	},
	ModuleGOTS: {
		symbol:  "GOTS",
		label:   "GOTS",
		pattern: regexp.MustCompile(`(?i)(^|[^a-z])g[\s.\-_]*o[\s.\-_]*t[\s.\-_]*s($|[^a-z])|global\s*organic\s*textile`),
	},
	ModuleEN71: {
		symbol:  "EN 71",
		label:   "Toy safety (EN 71)",
		pattern: regexp.MustCompile(`(?i)en[\s.\-_]*71|toy\s*safety|spielzeugrichtlinie|2009/48`),
	},
	ModuleAgeWarning: {
		symbol:  "0-3",
		label:   "Age warning",
		pattern: regexp.MustCompile(`(?i)age[\s\-_]*warning|altershinweis|warnhinweis|\b0[\s\-]*3\b|under\s*3`),
	},
	ModuleFoodContact: {
		symbol:  "FCM",
		label:   "Food contact",
		pattern: regexp.MustCompile(`(?i)food[\s\-_]*(contact|safe)|lebensmittelecht|lfgb|1935/2004`),
	},
}

type moduleSlot struct {
	id        string
	mandatory bool
}

// groupModules 是手工维护的分组候选列表；mandatory 是 (分组, 模块) 的静态属性。
var groupModules = map[ProductGroup][]moduleSlot{
	GroupElectronics: {
		{ModuleCE, true},
		{ModuleWEEE, true},
		{ModuleRoHS, true},
		{ModuleEMC, true},
		{ModuleRED, false},
		{ModuleEnergyLabel, false},
	},
	GroupTextiles: {
		{ModuleTextileComposition, true},
		{ModuleREACH, true},
		{ModuleOekoTex, false},
		{ModuleGOTS, false},
	},
	GroupToys: {
		{ModuleCE, true},
		{ModuleEN71, true},
		{ModuleAgeWarning, true},
		{ModuleREACH, false},
		{ModuleUKCA, false},
	},
	GroupHousehold: {
		{ModuleCE, true},
		{ModuleREACH, false},
		{ModuleRoHS, false},
		{ModuleFoodContact, false},
		{ModuleUKCA, false},
	},
}

// genericModules 用于 general 以及未知分组，全部非强制。
var genericModules = []moduleSlot{
	{ModuleCE, false},
	{ModuleREACH, false},
	{ModuleRoHS, false},
	{ModuleUKCA, false},
}

// CEApplicableGroups 列出需要 CE 标识的分组。
var CEApplicableGroups = []ProductGroup{GroupElectronics, GroupToys, GroupHousehold}

// RequiresCE 报告该分组是否要求 CE 标识。
func RequiresCE(group ProductGroup) bool {
	for _, g := range CEApplicableGroups {
		if g == group {
			return true
		}
	}
	return false
}

// BuildModules 为分组生成合规标识列表，每次调用都重新推导 Present。
func BuildModules(group ProductGroup, certificationNames []string, registrations map[string]string) []ModuleIcon {
	slots, ok := groupModules[group]
	if !ok {
		slots = genericModules
	}
	out := make([]ModuleIcon, 0, len(slots))
	for _, slot := range slots {
		def := moduleDefs[slot.id]
		out = append(out, ModuleIcon{
			ID:        slot.id,
			Symbol:    def.symbol,
			Label:     def.label,
			Mandatory: slot.mandatory,
			Present:   modulePresent(def, certificationNames, registrations),
		})
	}
	return out
}

// ModulePresent 对单个模块 ID 计算 Present，未知 ID 返回 false。
func ModulePresent(id string, certificationNames []string, registrations map[string]string) bool {
	def, ok := moduleDefs[id]
	if !ok {
		return false
	}
	return modulePresent(def, certificationNames, registrations)
}

func modulePresent(def moduleDef, certificationNames []string, registrations map[string]string) bool {
	if def.registrationKey != "" && strings.TrimSpace(registrations[def.registrationKey]) != "" {
		return true
	}
	for _, name := range certificationNames {
		if def.pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// FindModule 在列表中按 ID 查找模块。
func FindModule(modules []ModuleIcon, id string) (ModuleIcon, bool) {
	for _, m := range modules {
		if m.ID == id {
			return m, true
		}
	}
	return ModuleIcon{}, false
}
