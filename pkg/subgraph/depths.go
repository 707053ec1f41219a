package subgraph

// OutgoingEdgeResolveDepth budgets an edge kind that is only followed
// outwards.
type OutgoingEdgeResolveDepth struct {
	Outgoing uint8 `json:"outgoing"`
}

// EdgeResolveDepths budgets an edge kind in both directions.
type EdgeResolveDepths struct {
	Incoming uint8 `json:"incoming"`
	Outgoing uint8 `json:"outgoing"`
}

// GraphResolveDepths holds how many more hops of each edge kind a traversal
// may expand. Every hop of a kind decrements exactly that budget by one.
type GraphResolveDepths struct {
	IsOfType       OutgoingEdgeResolveDepth `json:"isOfType"`
	HasLeftEntity  EdgeResolveDepths        `json:"hasLeftEntity"`
	HasRightEntity EdgeResolveDepths        `json:"hasRightEntity"`
}

// ZeroDepths resolves nothing but the requested elements.
func ZeroDepths() GraphResolveDepths {
	return GraphResolveDepths{}
}

// UniformDepths sets every budget to n.
func UniformDepths(n uint8) GraphResolveDepths {
	return GraphResolveDepths{
		IsOfType:       OutgoingEdgeResolveDepth{Outgoing: n},
		HasLeftEntity:  EdgeResolveDepths{Incoming: n, Outgoing: n},
		HasRightEntity: EdgeResolveDepths{Incoming: n, Outgoing: n},
	}
}

// Covers reports whether every budget of d is at least the one in o, i.e. a
// traversal with d already did everything a traversal with o would do.
func (d GraphResolveDepths) Covers(o GraphResolveDepths) bool {
	return o.IsOfType.Outgoing <= d.IsOfType.Outgoing &&
		o.HasLeftEntity.Incoming <= d.HasLeftEntity.Incoming &&
		o.HasLeftEntity.Outgoing <= d.HasLeftEntity.Outgoing &&
		o.HasRightEntity.Incoming <= d.HasRightEntity.Incoming &&
		o.HasRightEntity.Outgoing <= d.HasRightEntity.Outgoing
}

// Max returns the component-wise maximum.
func (d GraphResolveDepths) Max(o GraphResolveDepths) GraphResolveDepths {
	return GraphResolveDepths{
		IsOfType: OutgoingEdgeResolveDepth{Outgoing: max(d.IsOfType.Outgoing, o.IsOfType.Outgoing)},
		HasLeftEntity: EdgeResolveDepths{
			Incoming: max(d.HasLeftEntity.Incoming, o.HasLeftEntity.Incoming),
			Outgoing: max(d.HasLeftEntity.Outgoing, o.HasLeftEntity.Outgoing),
		},
		HasRightEntity: EdgeResolveDepths{
			Incoming: max(d.HasRightEntity.Incoming, o.HasRightEntity.Incoming),
			Outgoing: max(d.HasRightEntity.Outgoing, o.HasRightEntity.Outgoing),
		},
	}
}

// IsZero reports whether no edge kind may be expanded.
func (d GraphResolveDepths) IsZero() bool {
	return d == GraphResolveDepths{}
}

// The Decrement helpers return a copy with one budget lowered by one. Callers
// only decrement budgets they checked to be positive.

func (d GraphResolveDepths) DecrementIsOfType() GraphResolveDepths {
	d.IsOfType.Outgoing--
	return d
}

func (d GraphResolveDepths) DecrementHasLeftEntityIncoming() GraphResolveDepths {
	d.HasLeftEntity.Incoming--
	return d
}

func (d GraphResolveDepths) DecrementHasLeftEntityOutgoing() GraphResolveDepths {
	d.HasLeftEntity.Outgoing--
	return d
}

func (d GraphResolveDepths) DecrementHasRightEntityIncoming() GraphResolveDepths {
	d.HasRightEntity.Incoming--
	return d
}

func (d GraphResolveDepths) DecrementHasRightEntityOutgoing() GraphResolveDepths {
	d.HasRightEntity.Outgoing--
	return d
}
