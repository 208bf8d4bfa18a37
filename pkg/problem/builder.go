package problem

// DefaultModules returns the standard module library used when a problem
// file omits its own catalog.
func DefaultModules() map[string]Module {
	return map[string]Module{
		"mixer_3x3":    {Name: "mixer_3x3", Category: CategoryMixer, Width: 3, Height: 3, ExecTime: 5},
		"heater_2x2":   {Name: "heater_2x2", Category: CategoryHeater, Width: 2, Height: 2, ExecTime: 10},
		"detector_1x1": {Name: "detector_1x1", Category: CategoryDetector, Width: 1, Height: 1, ExecTime: 2},
		"storage_2x2":  {Name: "storage_2x2", Category: CategoryStorage, Width: 2, Height: 2, ExecTime: 1},
		"dispenser":    {Name: "dispenser", Category: CategoryDispenser, Width: 1, Height: 1, ExecTime: 1},
		"waste":        {Name: "waste", Category: CategoryWaste, Width: 1, Height: 1, ExecTime: 1},
	}
}

// Builder assembles a Problem step by step. Errors are deferred to Build,
// which applies the same validation as [New].
//
//	p, err := problem.NewBuilder("pcr", 16, 16).
//	    Module("mixer", problem.CategoryMixer, 2, 2, 5).
//	    Op(1, "mix", "mixer").
//	    Op(2, "mix", "mixer", 1).
//	    Build()
type Builder struct {
	name    string
	chip    Chip
	modules map[string]Module
	ops     []Operation
}

// NewBuilder starts a problem on a width x height chip.
func NewBuilder(name string, width, height int) *Builder {
	return &Builder{
		name:    name,
		chip:    Chip{Width: width, Height: height},
		modules: make(map[string]Module),
	}
}

// Module adds a catalog entry.
func (b *Builder) Module(name string, c Category, width, height, execTime int) *Builder {
	b.modules[name] = Module{Name: name, Category: c, Width: width, Height: height, ExecTime: execTime}
	return b
}

// Modules adds every entry of a catalog.
func (b *Builder) Modules(catalog map[string]Module) *Builder {
	for k, m := range catalog {
		b.modules[k] = m
	}
	return b
}

// Op adds an operation that uses the module's execution time.
func (b *Builder) Op(id int, kind, moduleType string, deps ...int) *Builder {
	b.ops = append(b.ops, Operation{ID: id, Kind: kind, ModuleType: moduleType, Dependencies: deps})
	return b
}

// OpWithDuration adds an operation with an explicit duration.
func (b *Builder) OpWithDuration(id int, kind, moduleType string, duration int, deps ...int) *Builder {
	d := duration
	b.ops = append(b.ops, Operation{ID: id, Kind: kind, ModuleType: moduleType, Dependencies: deps, Duration: &d})
	return b
}

// Build validates and returns the problem.
func (b *Builder) Build() (*Problem, error) {
	return New(b.name, b.chip, b.modules, b.ops)
}

// MustBuild is like Build but panics on error. Intended for tests and
// examples with literal inputs.
func (b *Builder) MustBuild() *Problem {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}
