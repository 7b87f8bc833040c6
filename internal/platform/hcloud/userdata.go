package hcloud

// BootstrapCommand blocks until cloud-init has finished on the server.
const BootstrapCommand = "cloud-init status --wait > /dev/null 2>&1 || true"

// userData prepares a stock Ubuntu image for the install script: the
// /workspace directory, git, wget and a pip that may install into the system
// interpreter.
const userData = `#cloud-config
package_update: true
packages:
  - git
  - wget
  - python3-pip
  - python-is-python3
write_files:
  - path: /etc/pip.conf
    content: |
      [global]
      break-system-packages = true
runcmd:
  - mkdir -p /workspace
  - ln -sf /usr/bin/pip3 /usr/local/bin/pip
`
