package survey

// Preset is a built-in respondent attribute that a survey can switch on with a flag
type Preset struct {
	Type    AttributeType
	Title   string
	Choices []string
}

var (
	AgePreset = Preset{
		Type:    AttributeTypeAge,
		Title:   "年代",
		Choices: []string{"10代以下", "20代", "30代", "40代", "50代", "60代以上"},
	}

	GenderPreset = Preset{
		Type:    AttributeTypeGender,
		Title:   "性別",
		Choices: []string{"男性", "女性", "その他", "回答しない"},
	}

	LocationPreset = Preset{
		Type:  AttributeTypeLocation,
		Title: "居住地",
		Choices: []string{
			"北海道", "青森県", "岩手県", "宮城県", "秋田県", "山形県", "福島県",
			"茨城県", "栃木県", "群馬県", "埼玉県", "千葉県", "東京都", "神奈川県",
			"新潟県", "富山県", "石川県", "福井県", "山梨県", "長野県", "岐阜県",
			"静岡県", "愛知県", "三重県", "滋賀県", "京都府", "大阪府", "兵庫県",
			"奈良県", "和歌山県", "鳥取県", "島根県", "岡山県", "広島県", "山口県",
			"徳島県", "香川県", "愛媛県", "高知県", "福岡県", "佐賀県", "長崎県",
			"熊本県", "大分県", "宮崎県", "鹿児島県", "沖縄県",
		},
	}
)

// attributePlan flattens the enabled presets and custom attributes into insertion order:
// age, gender, location, then custom attributes as submitted
func attributePlan(in AttributeInput) []Preset {
	plan := make([]Preset, 0, 3+len(in.Custom))
	if in.UseAge {
		plan = append(plan, AgePreset)
	}
	if in.UseGender {
		plan = append(plan, GenderPreset)
	}
	if in.UseLocation {
		plan = append(plan, LocationPreset)
	}
	for _, custom := range in.Custom {
		plan = append(plan, Preset{
			Type:    AttributeTypeCustom,
			Title:   custom.Title,
			Choices: custom.Choices,
		})
	}
	return plan
}
