// Package schema declares the closed vocabulary of the stock-market knowledge
// graph: which entity types exist, which relation types exist, and which
// relation types each entity type may take part in.
//
// The tags are the Vietnamese snake-case labels used in the extracted graph.
// English glosses are kept next to each tag for logs and API consumers.
package schema

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrUnknownEntityType   = errors.New("unknown entity type")
	ErrUnknownRelationType = errors.New("unknown relation type")
	ErrRelationNotAllowed  = errors.New("relation not allowed for entity type")
)

// EntityType is a tag classifying a graph node.
type EntityType string

// RelationType is a tag labeling a directed edge.
type RelationType string

const (
	StockTicker         EntityType = "mã_cổ_phiếu"
	Company             EntityType = "công_ty"
	Profit              EntityType = "lợi_nhuận"
	StockPrice          EntityType = "giá_cổ_phiếu"
	TradingVolume       EntityType = "khối_lượng_giao_dịch"
	TradingDate         EntityType = "ngày_giao_dịch"
	Asset               EntityType = "tài_sản"
	Receivable          EntityType = "khoản_phải_thu"
	Project             EntityType = "dự_án"
	Revenue             EntityType = "doanh_thu"
	GrossProfit         EntityType = "lợi_nhuận_gộp"
	NetIncome           EntityType = "lãi_ròng"
	AfterTaxProfit      EntityType = "lợi_nhuận_sau_thuế"
	Inventory           EntityType = "tồn_kho"
	ShortTermReceivable EntityType = "khoản_phải_thu_ngắn_hạn"
	RelatedParty        EntityType = "bên_liên_quan"
	Industry            EntityType = "ngành_công_nghiệp"
)

const (
	Owns         RelationType = "sở_hữu"
	BelongsTo    RelationType = "thuộc_về"
	Is           RelationType = "là"
	IsPartOf     RelationType = "là_một_phần_của"
	Increases    RelationType = "tăng"
	Decreases    RelationType = "giảm"
	TradedOnDate RelationType = "giao_dịch_vào_ngày"
	Announces    RelationType = "công_bố"
	Deploys      RelationType = "triển_khai"
	Reaches      RelationType = "đạt"
	Arises       RelationType = "phát_sinh"
	Subtracts    RelationType = "trừ"
	UpTo         RelationType = "lên_đến"
	AccountsFor  RelationType = "chiếm"
	Collaborates RelationType = "hợp_tác"
	RelatesTo    RelationType = "liên_quan_tới"
)

// BelongsToIndustry appears in the mapping for stock tickers but was never
// declared as a relation type. Check reports it.
const BelongsToIndustry RelationType = "thuộc_về_ngành_công_nghiệp"

var entityTypes = []EntityType{
	StockTicker, Company, Profit, StockPrice, TradingVolume, TradingDate,
	Asset, Receivable, Project, Revenue, GrossProfit, NetIncome,
	AfterTaxProfit, Inventory, ShortTermReceivable, RelatedParty, Industry,
}

var relationTypes = []RelationType{
	Owns, BelongsTo, Is, IsPartOf, Increases, Decreases, TradedOnDate,
	Announces, Deploys, Reaches, Arises, Subtracts, UpTo, AccountsFor, Collaborates, RelatesTo,
}

// mapping lists the permitted relation types per entity type, in the order
// they were declared.
var mapping = map[EntityType][]RelationType{
	StockTicker:         {Owns, BelongsTo, Is, BelongsToIndustry},
	Company:             {Owns, BelongsTo},
	Profit:              {Increases, Decreases},
	StockPrice:          {Increases, Decreases},
	TradingVolume:       {TradedOnDate},
	TradingDate:         {TradedOnDate},
	Asset:               {Increases, Decreases},
	Receivable:          {Increases, Decreases},
	Project:             {Deploys, BelongsTo},
	Revenue:             {Reaches},
	GrossProfit:         {Reaches},
	NetIncome:           {Reaches},
	AfterTaxProfit:      {Reaches},
	Inventory:           {Increases, Decreases},
	ShortTermReceivable: {Increases, Decreases},
	RelatedParty:        {Collaborates},
	Industry:            {RelatesTo},
}

var glosses = map[string]string{
	string(StockTicker):         "stock ticker",
	string(Company):             "company",
	string(Profit):              "profit",
	string(StockPrice):          "stock price",
	string(TradingVolume):       "trading volume",
	string(TradingDate):         "trading date",
	string(Asset):               "asset",
	string(Receivable):          "receivable",
	string(Project):             "project",
	string(Revenue):             "revenue",
	string(GrossProfit):         "gross profit",
	string(NetIncome):           "net income",
	string(AfterTaxProfit):      "after-tax profit",
	string(Inventory):           "inventory",
	string(ShortTermReceivable): "short-term receivable",
	string(RelatedParty):        "related party",
	string(Industry):            "industry",
	string(Owns):                "owns",
	string(BelongsTo):           "belongs to",
	string(Is):                  "is",
	string(IsPartOf):            "is part of",
	string(Increases):           "increases",
	string(Decreases):           "decreases",
	string(TradedOnDate):        "traded on date",
	string(Announces):           "announces",
	string(Deploys):             "deploys",
	string(Reaches):             "reaches",
	string(Arises):              "arises",
	string(Subtracts):           "subtracts",
	string(UpTo):                "up to",
	string(AccountsFor):         "accounts for",
	string(Collaborates):        "collaborates",
	string(RelatesTo):           "relates to",
	string(BelongsToIndustry):   "belongs to industry",
}

// EntityTypes returns the declared entity types in declaration order.
func EntityTypes() []EntityType {
	return slices.Clone(entityTypes)
}

// RelationTypes returns the declared relation types in declaration order.
func RelationTypes() []RelationType {
	return slices.Clone(relationTypes)
}

// Mapping returns a copy of the entity type to permitted relation types mapping.
func Mapping() map[EntityType][]RelationType {
	out := make(map[EntityType][]RelationType, len(mapping))
	for k, v := range mapping {
		out[k] = slices.Clone(v)
	}
	return out
}

// AllowedRelations returns the relation types an entity type may take part in.
func AllowedRelations(t EntityType) []RelationType {
	return slices.Clone(mapping[t])
}

func IsEntityType(s string) bool {
	return slices.Contains(entityTypes, EntityType(s))
}

func IsRelationType(s string) bool {
	return slices.Contains(relationTypes, RelationType(s))
}

// Gloss returns the English reading of an entity or relation tag, or the tag
// itself when none is known.
func Gloss(tag string) string {
	if g, ok := glosses[tag]; ok {
		return g
	}
	return tag
}

// Defect describes a mapping entry that does not conform to the declared sets.
type Defect struct {
	EntityType EntityType   `json:"entity_type"`
	Relation   RelationType `json:"relation,omitempty"`
	Reason     string       `json:"reason"`
}

func (d Defect) String() string {
	if d.Relation == "" {
		return fmt.Sprintf("%s: %s", d.EntityType, d.Reason)
	}
	return fmt.Sprintf("%s -> %s: %s", d.EntityType, d.Relation, d.Reason)
}

// Check verifies that every key of the mapping is a declared entity type and
// every relation listed for it is a declared relation type. Defects are
// returned sorted by entity type declaration order.
func Check() []Defect {
	return checkMapping(mapping)
}

func checkMapping(m map[EntityType][]RelationType) []Defect {
	var defects []Defect

	keys := make([]EntityType, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b EntityType) int {
		return entityOrder(a) - entityOrder(b)
	})

	for _, et := range keys {
		if !IsEntityType(string(et)) {
			defects = append(defects, Defect{EntityType: et, Reason: "entity type not declared"})
		}
		for _, rel := range m[et] {
			if !IsRelationType(string(rel)) {
				defects = append(defects, Defect{EntityType: et, Relation: rel, Reason: "relation type not declared"})
			}
		}
	}
	return defects
}

func entityOrder(t EntityType) int {
	if i := slices.Index(entityTypes, t); i >= 0 {
		return i
	}
	return len(entityTypes)
}

// ValidateTriplet reports whether a relation between a head of type head and a
// tail of type tail conforms to the schema. The relation must be declared and
// permitted for the head entity type.
func ValidateTriplet(head string, relation string, tail string) error {
	if !IsEntityType(head) {
		return fmt.Errorf("%w: %q", ErrUnknownEntityType, head)
	}
	if !IsEntityType(tail) {
		return fmt.Errorf("%w: %q", ErrUnknownEntityType, tail)
	}
	if !IsRelationType(relation) {
		return fmt.Errorf("%w: %q", ErrUnknownRelationType, relation)
	}
	if !slices.Contains(mapping[EntityType(head)], RelationType(relation)) {
		return fmt.Errorf("%w: %q -> %q", ErrRelationNotAllowed, head, relation)
	}
	return nil
}
