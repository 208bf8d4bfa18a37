package problem

// Category is the kind of fluidic work a module performs.
type Category string

// Module categories. The string values are the ones used in problem files.
const (
	CategoryMixer     Category = "mixer"
	CategoryHeater    Category = "heater"
	CategoryDetector  Category = "detector"
	CategoryStorage   Category = "storage"
	CategoryDispenser Category = "dispenser"
	CategoryWaste     Category = "waste"
)

// Categories lists every supported category in a stable order.
var Categories = []Category{
	CategoryMixer,
	CategoryHeater,
	CategoryDetector,
	CategoryStorage,
	CategoryDispenser,
	CategoryWaste,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Module is a catalog entry: a rectangular functional unit that occupies
// Width x Height electrodes while an operation runs on it.
type Module struct {
	Name     string   `json:"name"`
	Category Category `json:"type"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	ExecTime int      `json:"exec_time"`
}

// Area returns the number of electrodes the module covers.
func (m Module) Area() int {
	return m.Width * m.Height
}
