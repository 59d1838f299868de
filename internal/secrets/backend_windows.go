//go:build windows

package secrets

import (
	"context"
	"fmt"
	"os/exec"
)

// credmanBackend talks to the Windows Credential Manager through
// PowerShell and the advapi32 CredRead/CredWrite API. The script is
// generated per call; service and account are combined into the
// credential target name.
type credmanBackend struct{}

func newPlatformBackend() Backend {
	return credmanBackend{}
}

// credReadType is the advapi32 type declaration shared by the scripts.
const credReadType = `
Add-Type -TypeDefinition @"
using System;
using System.Runtime.InteropServices;
public class CredManager {
    [DllImport("advapi32.dll", SetLastError = true, CharSet = CharSet.Unicode)]
    public static extern bool CredRead(string target, int type, int flags, out IntPtr credential);
    [DllImport("advapi32.dll")]
    public static extern void CredFree(IntPtr credential);
    [StructLayout(LayoutKind.Sequential, CharSet = CharSet.Unicode)]
    public struct CREDENTIAL {
        public int Flags;
        public int Type;
        public string TargetName;
        public string Comment;
        public long LastWritten;
        public int CredentialBlobSize;
        public IntPtr CredentialBlob;
        public int Persist;
        public int AttributeCount;
        public IntPtr Attributes;
        public string TargetAlias;
        public string UserName;
    }
    public static string GetPassword(string target) {
        IntPtr ptr;
        if (CredRead(target, 1, 0, out ptr)) {
            CREDENTIAL cred = (CREDENTIAL)Marshal.PtrToStructure(ptr, typeof(CREDENTIAL));
            string password = Marshal.PtrToStringUni(cred.CredentialBlob, cred.CredentialBlobSize / 2);
            CredFree(ptr);
            return password;
        }
        return null;
    }
}
"@
`

func target(service, account string) string {
	return service + ":" + account
}

func (credmanBackend) Lookup(ctx context.Context, service, account string) (string, error) {
	script := fmt.Sprintf(`$ErrorActionPreference = "SilentlyContinue"
%s
$password = [CredManager]::GetPassword(%q)
if ($password) { Write-Output $password }`, credReadType, target(service, account))

	out, err := run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if err != nil || out == "" {
		return "", ErrNotFound
	}

	return out, nil
}

func (credmanBackend) Store(ctx context.Context, service, account, value string) error {
	script := fmt.Sprintf(`cmdkey /generic:%q /user:%q /pass:%q | Out-Null`,
		target(service, account), account, value)

	_, err := run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)

	return err
}

func (credmanBackend) Delete(ctx context.Context, service, account string) error {
	script := fmt.Sprintf(`cmdkey /delete:%q | Out-Null`, target(service, account))
	_, _ = run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)

	return nil
}

func (credmanBackend) Available() bool {
	_, err := exec.LookPath("powershell")
	return err == nil
}
