package plane

// CompositionState records how a plane-state's layers reach the screen.
type CompositionState int

const (
	// StateScanout means the plane directly scans out a single layer's
	// buffer; Layers holds exactly that layer's index.
	StateScanout CompositionState = iota

	// StateRender means the plane displays a GPU-composited region built
	// from every layer index in Layers, in bottom-to-top order.
	StateRender
)

// State is one hardware plane's assignment for the current frame: which
// plane, how its content reaches the screen, and which input layers feed
// it. It mirrors DisplayPlaneState from the reference compositor.
type State struct {
	Plane  *Descriptor
	State  CompositionState
	Layers []int

	// rootDesc is the representative layer for StateScanout; nil once
	// forced to StateRender.
	rootDesc *Layer

	// output is the GPU-composited surface bound to this plane once
	// state is StateRender, set by SetOutput after the compositor has
	// rendered this state's region.
	output *Layer
}

func newScanoutState(p *Descriptor, l *Layer) *State {
	return &State{Plane: p, State: StateScanout, Layers: []int{l.Index}, rootDesc: l}
}

// ForceGPURendering converts this plane-state from Scanout to Render. Its
// already-assigned representative layer remains the first entry in Layers.
func (s *State) ForceGPURendering() {
	s.State = StateRender
	s.rootDesc = nil
}

// AddLayer appends layerIndex to the set of layers this plane-state's GPU
// composition must include. A plane-state holding more than one layer can
// only reach the screen via GPU composition, so AddLayer also forces the
// state to StateRender.
func (s *State) AddLayer(layerIndex int) {
	s.Layers = append(s.Layers, layerIndex)
	s.State = StateRender
	s.rootDesc = nil
}

// SetOutput binds the GPU-composited surface produced for this
// plane-state's region, so Manager.Commit has a layer to scan out.
func (s *State) SetOutput(l *Layer) { s.output = l }

// RepresentativeLayer returns the layer bound to this plane-state's
// plane for the purpose of committing it: the single scanned-out layer
// for StateScanout, or the GPU-composited output layer for StateRender
// once SetOutput has been called.
func (s *State) RepresentativeLayer() *Layer {
	if s.State == StateScanout {
		return s.rootDesc
	}
	return s.output
}
