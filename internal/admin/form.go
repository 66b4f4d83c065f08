package admin

// Values is a submitted form, keyed by field name.
type Values map[string]string

// Has reports whether the field was submitted at all, even if empty.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

const (
	WidgetText     = "text"
	WidgetEmail    = "email"
	WidgetPassword = "password"
)

type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Widget   string `json:"widget"`
	Value    string `json:"value"`
	ReadOnly bool   `json:"readonly"`
}

type Form struct {
	Fields []Field `json:"fields"`
}

func (f *Form) SetReadOnly(names ...string) {
	for _, name := range names {
		for i := range f.Fields {
			if f.Fields[i].Name == name {
				f.Fields[i].ReadOnly = true
			}
		}
	}
}

func (f Form) Field(name string) (Field, bool) {
	for _, fld := range f.Fields {
		if fld.Name == name {
			return fld, true
		}
	}
	return Field{}, false
}
