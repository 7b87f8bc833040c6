// Package compute defines the contract between the provisioning orchestrator
// and a compute provider backend, along with the provider-neutral helpers
// built on top of it.
//
// A backend implements [Provider]. The orchestrator only ever talks to the
// interface:
//
//	inst, err := p.CreateInstance(ctx, req)
//	if err != nil {
//	    return err
//	}
//	inst, err = compute.WaitUntilReady(ctx, p, inst.ID, compute.WaitOptions{})
//
// Instances are never torn down automatically. [Provider.TerminateInstance]
// exists for explicit operator requests only.
package compute
