// Package esphome serves the plaintext ESPHome native API subset that a
// home-automation controller needs to adopt the panel as a device: the
// hello/connect handshake, device info, entity listing, state
// subscription and switch, light, button and media player commands.
//
// # Wire format
//
// Every message is one frame:
//
//	[0x00][varint payload length][varint message type][protobuf payload]
//
// Payloads are encoded with protowire against the controller's field
// numbers. Only the fields the panel uses are modelled; unknown fields in
// requests are skipped.
//
// # Usage
//
//	d := esphome.NewDispatcher(info, registry, state, sampler, host, logger)
//	srv := esphome.NewServer(esphome.Config{Port: 6053, ...}, d, nil, logger)
//	if err := srv.Start(ctx); err != nil {
//	    return err // errors.Is(err, esphome.ErrBind)
//	}
//	defer srv.Stop()
package esphome
