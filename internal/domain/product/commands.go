package product

const (
	CommandTypeAddProduct              = "AddProduct"
	CommandTypeMarkProductAsSaleable   = "MarkProductAsSaleable"
	CommandTypeMarkProductAsUnsaleable = "MarkProductAsUnsaleable"
)

// Command is an intention to act on a single product aggregate.
type Command interface {
	AggregateId() string
	CommandType() string
}

type AddProduct struct {
	Id            string
	Name          string
	CorrelationId string
}

func (c AddProduct) AggregateId() string {
	return c.Id
}

func (c AddProduct) CommandType() string {
	return CommandTypeAddProduct
}

type MarkProductAsSaleable struct {
	Id            string
	CorrelationId string
}

func (c MarkProductAsSaleable) AggregateId() string {
	return c.Id
}

func (c MarkProductAsSaleable) CommandType() string {
	return CommandTypeMarkProductAsSaleable
}

type MarkProductAsUnsaleable struct {
	Id            string
	CorrelationId string
}

func (c MarkProductAsUnsaleable) AggregateId() string {
	return c.Id
}

func (c MarkProductAsUnsaleable) CommandType() string {
	return CommandTypeMarkProductAsUnsaleable
}
