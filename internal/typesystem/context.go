package typesystem

import "sync"

type arrayKey struct {
	element          Type
	rank             int
	multiDimensional bool
}

type variableKey struct {
	index  int
	method bool
}

type nameKey struct {
	namespace string
	name      string
}

// Context interns type descriptors. It is safe for concurrent use, so
// several signatures can be decoded against one Context in parallel.
type Context struct {
	wellKnown [wellKnownCount]*PrimitiveType

	mu               sync.Mutex
	nominal          map[nameKey]*MetadataType
	byRefs           map[Type]*ByRefType
	pointers         map[Type]*PointerType
	arrays           map[arrayKey]*ArrayType
	variables        map[variableKey]*SignatureVariable
	instantiations   map[*MetadataType][]*InstantiatedType
	functionPointers []*FunctionPointerType
}

func NewContext() *Context {
	c := &Context{
		nominal:        make(map[nameKey]*MetadataType),
		byRefs:         make(map[Type]*ByRefType),
		pointers:       make(map[Type]*PointerType),
		arrays:         make(map[arrayKey]*ArrayType),
		variables:      make(map[variableKey]*SignatureVariable),
		instantiations: make(map[*MetadataType][]*InstantiatedType),
	}
	for i := range c.wellKnown {
		c.wellKnown[i] = &PrimitiveType{WellKnown: WellKnownType(i)}
	}
	return c
}

// GetWellKnownType returns the primitive descriptor for w. It panics if w
// is not a defined WellKnownType.
func (c *Context) GetWellKnownType(w WellKnownType) Type {
	return c.wellKnown[w]
}

// GetMetadataType returns the nominal type with the given name.
func (c *Context) GetMetadataType(namespace, name string) *MetadataType {
	key := nameKey{namespace, name}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.nominal[key]; ok {
		return t
	}
	t := &MetadataType{Namespace: namespace, Name: name}
	c.nominal[key] = t
	return t
}

func (c *Context) GetByRefType(parameter Type) Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.byRefs[parameter]; ok {
		return t
	}
	t := &ByRefType{Parameter: parameter}
	c.byRefs[parameter] = t
	return t
}

func (c *Context) GetPointerType(parameter Type) Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.pointers[parameter]; ok {
		return t
	}
	t := &PointerType{Parameter: parameter}
	c.pointers[parameter] = t
	return t
}

// GetArrayType returns the single-dimensional zero-based array of element.
func (c *Context) GetArrayType(element Type) Type {
	return c.getArrayType(arrayKey{element: element, rank: 1})
}

// GetMDArrayType returns the general array of element with the given rank.
func (c *Context) GetMDArrayType(element Type, rank int) Type {
	return c.getArrayType(arrayKey{element: element, rank: rank, multiDimensional: true})
}

func (c *Context) getArrayType(key arrayKey) Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.arrays[key]; ok {
		return t
	}
	t := &ArrayType{Element: key.element, Rank: key.rank, multiDimensional: key.multiDimensional}
	c.arrays[key] = t
	return t
}

func (c *Context) GetSignatureVariable(index int, method bool) Type {
	key := variableKey{index, method}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.variables[key]; ok {
		return t
	}
	t := &SignatureVariable{Index: index, Method: method}
	c.variables[key] = t
	return t
}

// GetInstantiatedType returns definition instantiated over instantiation.
// The slice is copied, callers may reuse it.
func (c *Context) GetInstantiatedType(definition *MetadataType, instantiation []Type) Type {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.instantiations[definition] {
		if sameTypes(t.Instantiation, instantiation) {
			return t
		}
	}
	t := &InstantiatedType{
		Definition:    definition,
		Instantiation: append([]Type(nil), instantiation...),
	}
	c.instantiations[definition] = append(c.instantiations[definition], t)
	return t
}

func (c *Context) GetFunctionPointerType(signature *MethodSignature) Type {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.functionPointers {
		if t.Signature.Equal(signature) {
			return t
		}
	}
	t := &FunctionPointerType{Signature: signature}
	c.functionPointers = append(c.functionPointers, t)
	return t
}

func sameTypes(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
