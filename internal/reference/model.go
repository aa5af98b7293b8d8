package reference

// EnumDirectory is one enum catalog: an ordered list of allowed codes.
type EnumDirectory struct {
	Name  string     `yaml:"name" json:"name"`
	Items []EnumItem `yaml:"items" json:"items"`
}

type EnumItem struct {
	Code  string `yaml:"code" json:"code"`
	Name  string `yaml:"name" json:"name,omitempty"`
	Order int    `yaml:"order,omitempty" json:"order,omitempty"`
}

// Codes returns the item codes in catalog order.
func (d EnumDirectory) Codes() []string {
	out := make([]string, 0, len(d.Items))
	for _, it := range d.Items {
		if it.Code != "" {
			out = append(out, it.Code)
		}
	}
	return out
}
