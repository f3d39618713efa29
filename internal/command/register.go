package command

// RegisterAll wires every command group into reg. Called once at server
// startup to build the registry the dispatcher runs against.
func RegisterAll(reg *Registry) {
	RegisterStringCommands(reg)
	RegisterKeyCommands(reg)
	RegisterListCommands(reg)
	RegisterHashCommands(reg)
	RegisterSetCommands(reg)
	RegisterZSetCommands(reg)
	RegisterConnCommands(reg)
	RegisterTxnCommands(reg)
	RegisterPubSubCommands(reg)
	RegisterAdminCommands(reg)
}
