// Package config defines the provisioning configuration model.
//
// [ProvisioningConfig] describes everything a single provisioning run needs:
// provider credentials, instance sizing, the ordered list of [ModelSpec]
// artifacts to download and the repositories to install. It is loaded from
// a YAML file, completed from the environment and then handed to the
// orchestrator, which only ever reads it.
package config
