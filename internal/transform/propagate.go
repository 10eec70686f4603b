package transform

func init() {
	Register(propagateFinishReasons{})
}

// propagateFinishReasons is the final egress safety net, priority
// 100: whatever finish_reason is still empty when this runs defaults
// to "stop".
type propagateFinishReasons struct{}

func (propagateFinishReasons) Name() string  { return "propagate_finish_reasons" }
func (propagateFinishReasons) Stage() Stage  { return Egress }
func (propagateFinishReasons) Priority() int { return 100 }

func (propagateFinishReasons) Applies(ctx *Context) bool {
	return ctx.Response != nil && ctx.Response.FinishReason == ""
}

func (propagateFinishReasons) Apply(ctx *Context) error {
	ctx.Response.FinishReason = "stop"
	return nil
}
